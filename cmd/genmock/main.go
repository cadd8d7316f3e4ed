// Command genmock generates synthetic balance requests for local runs and
// load tests. Requests are written as newline-delimited JSON and can be
// published to the request topic directly.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -farms 20 -fields 6 -year 2023 -seed 42 \
//	  -out data/mock/balance_requests_2023.ndjson
//
//	go run ./cmd/genmock -farms 200 \
//	  -brokers localhost:9092 -topic nitrogen-balance-requests
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/google/uuid"
	"github.com/nutrient-balance/nbalance/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Netherlands bounding box, WGS-84.
const (
	minLon, maxLon = 3.4, 7.2
	minLat, maxLat = 50.8, 53.5
)

var soilTypes = []string{"dekzand", "zeeklei", "rivierklei", "veen", "loess", "dalgrond"}

var groundwaterClasses = []string{"I", "II", "IIIb", "IV", "V", "VI", "VII", "VIII"}

var cultivationCatalogue = []domain.CultivationDetail{
	{ID: "nl_265", Name: "Grasland, blijvend", CropRotation: "grass", Yield: nd("11000"), NHarvestable: nd("30"), NResidue: nd("20"), HarvestIndex: nd("0.8")},
	{ID: "nl_259", Name: "Snijmais", CropRotation: "maize", Yield: nd("17000"), NHarvestable: nd("12"), NResidue: nd("11"), HarvestIndex: nd("0.85")},
	{ID: "nl_233", Name: "Wintertarwe", CropRotation: "cereal", Yield: nd("9000"), NHarvestable: nd("19"), NResidue: nd("6"), HarvestIndex: nd("0.5")},
	{ID: "nl_800", Name: "Rode klaver", CropRotation: "clover", Yield: nd("8000"), NHarvestable: nd("35"), NFixation: nd("150")},
}

var fertilizerCatalogue = []domain.FertilizerDetail{
	{ID: "cattle_slurry", Name: "Rundveedrijfmest", Type: domain.FertilizerManure, NContent: nd("4.0"), NH4Content: nd("2.0")},
	{ID: "pig_slurry", Name: "Varkensdrijfmest", Type: domain.FertilizerManure, NContent: nd("6.5"), NH4Content: nd("4.0")},
	{ID: "kas", Name: "Kalkammonsalpeter", Type: domain.FertilizerMineral, NContent: nd("270"), NO3Content: nd("135"), NH4Content: nd("135"), SContent: nd("0")},
	{ID: "green_compost", Name: "Groencompost", Type: domain.FertilizerCompost, NContent: nd("7"), NH4Content: nd("0.3")},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	farms := flag.Int("farms", 10, "number of balance requests to generate")
	fields := flag.Int("fields", 5, "fields per farm")
	year := flag.Int("year", 2023, "calendar year of the time frame")
	seed := flag.Uint64("seed", 1, "random seed for reproducible output")
	out := flag.String("out", "", "output path for newline-delimited JSON requests")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers to publish to")
	topic := flag.String("topic", "nitrogen-balance-requests", "Kafka topic to publish to")
	flag.Parse()

	if *out == "" && *brokers == "" {
		flag.Usage()
		return fmt.Errorf("one of -out or -brokers is required")
	}
	if *farms <= 0 || *fields <= 0 {
		return fmt.Errorf("-farms and -fields must be positive")
	}

	g := newGenerator(*seed)
	requests := make([]domain.BalanceRequest, *farms)
	for i := range requests {
		requests[i] = g.request(*year, *fields)
	}

	if *out != "" {
		if err := writeNDJSON(*out, requests); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		log.Printf("wrote %d requests to %s", len(requests), *out)
	}
	if *brokers != "" {
		if err := publish(sharedcfg.ParseBrokers(*brokers), *topic, requests); err != nil {
			return fmt.Errorf("publish to %s: %w", *topic, err)
		}
		log.Printf("published %d requests to %s", len(requests), *topic)
	}
	return nil
}

type generator struct {
	rng *rand.Rand
	ids *rand.ChaCha8
}

func newGenerator(seed uint64) *generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return &generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ids: rand.NewChaCha8(key),
	}
}

func (g *generator) id() string {
	u, err := uuid.NewRandomFromReader(g.ids)
	if err != nil {
		panic(err) // ChaCha8 reads never fail
	}
	return u.String()
}

func (g *generator) between(lo, hi float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(lo + g.rng.Float64()*(hi-lo)).Round(places)
}

func (g *generator) request(year, fields int) domain.BalanceRequest {
	farmID := g.id()
	snap := domain.Snapshot{
		FarmID:             farmID,
		FertilizerDetails:  fertilizerCatalogue,
		CultivationDetails: cultivationCatalogue,
	}
	for i := 0; i < fields; i++ {
		g.addField(&snap, year, i)
	}
	return domain.BalanceRequest{
		RequestID: g.id(),
		TimeFrame: domain.TimeFrame{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		},
		Snapshot: snap,
	}
}

func (g *generator) addField(snap *domain.Snapshot, year, index int) {
	field := domain.Field{
		ID:     g.id(),
		FarmID: snap.FarmID,
		Name:   fmt.Sprintf("Perceel %d", index+1),
		Centroid: domain.Centroid{
			Lon: minLon + g.rng.Float64()*(maxLon-minLon),
			Lat: minLat + g.rng.Float64()*(maxLat-minLat),
		},
		Area: g.between(0.5, 15, 2),
	}
	snap.Fields = append(snap.Fields, field)

	snap.SoilAnalyses = append(snap.SoilAnalyses, domain.SoilAnalysis{
		ID:               g.id(),
		FieldID:          field.ID,
		SamplingDate:     date(year-1, time.Month(1+g.rng.IntN(12)), 1+g.rng.IntN(28)),
		OrganicCarbon:    decimal.NewNullDecimal(g.between(8, 45, 1)),
		CNRatio:          decimal.NewNullDecimal(g.between(8, 16, 1)),
		BulkDensity:      decimal.NewNullDecimal(g.between(1.0, 1.5, 2)),
		SoilType:         soilTypes[g.rng.IntN(len(soilTypes))],
		GroundwaterClass: groundwaterClasses[g.rng.IntN(len(groundwaterClasses))],
	})

	crop := cultivationCatalogue[g.rng.IntN(len(cultivationCatalogue))]
	cult := domain.Cultivation{
		ID:          g.id(),
		FieldID:     field.ID,
		CatalogueID: crop.ID,
		CropResidue: ptr(g.rng.IntN(2) == 0),
	}
	grassland := crop.CropRotation == "grass" || crop.CropRotation == "clover"
	if grassland {
		cult.Start = date(year-2, time.March, 1)
	} else {
		cult.Start = date(year, time.April, 15+g.rng.IntN(15))
		cult.End = ptr(date(year, time.September, 15+g.rng.IntN(15)))
	}
	snap.Cultivations = append(snap.Cultivations, cult)

	cuts := 1
	if grassland {
		cuts = 3 + g.rng.IntN(3)
	}
	for c := 0; c < cuts; c++ {
		harvestDate := date(year, time.May+time.Month(c), 20)
		if !grassland {
			harvestDate = *cult.End
		}
		snap.Harvests = append(snap.Harvests, domain.Harvest{
			ID:            g.id(),
			CultivationID: cult.ID,
			Date:          harvestDate,
			Analyses: []domain.HarvestAnalysis{{
				Yield:        decimal.NewNullDecimal(crop.Yield.Decimal.Div(decimal.NewFromInt(int64(cuts))).Mul(g.between(0.8, 1.2, 2)).Round(0)),
				NHarvestable: decimal.NewNullDecimal(crop.NHarvestable.Decimal.Mul(g.between(0.9, 1.1, 2)).Round(1)),
			}},
		})
	}

	slurry := fertilizerCatalogue[g.rng.IntN(2)]
	method := domain.MethodShallowInjection
	if !grassland {
		method = domain.MethodIncorporation
	}
	snap.FertilizerApplications = append(snap.FertilizerApplications,
		domain.FertilizerApplication{
			ID:          g.id(),
			FieldID:     field.ID,
			CatalogueID: slurry.ID,
			Name:        slurry.Name,
			Amount:      g.between(15000, 35000, -2),
			Date:        date(year, time.March, 10+g.rng.IntN(20)),
			Method:      method,
		},
		domain.FertilizerApplication{
			ID:          g.id(),
			FieldID:     field.ID,
			CatalogueID: "kas",
			Name:        "Kalkammonsalpeter",
			Amount:      g.between(100, 350, 0),
			Date:        date(year, time.April, 1+g.rng.IntN(28)),
			Method:      domain.MethodBroadcasting,
		},
	)
}

func writeNDJSON(path string, requests []domain.BalanceRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range requests {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

func publish(brokers []string, topic string, requests []domain.BalanceRequest) error {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, len(requests))
	for i, r := range requests {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("serialize request %s: %w", r.RequestID, err)
		}
		msgs[i] = kafkago.Message{Key: []byte(r.RequestID), Value: data}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.WriteMessages(ctx, msgs...)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(domain.Dec(s))
}

func ptr[T any](v T) *T {
	return &v
}
