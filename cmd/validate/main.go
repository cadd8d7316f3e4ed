// Command validate checks published balance results for internal
// consistency: field accounting, sign conventions, and farm aggregation. It
// reads newline-delimited JSON results as consumed from the result topic or
// returned by POST /v1/balance.
//
// Usage:
//
//	go run ./cmd/validate -results data/mock/balance_results_2023.ndjson
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

// tolerance absorbs rounding of the area-weighted division.
var tolerance = domain.Dec("1e-9")

var annualMineralizationMax = domain.Dec("250")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	resultsPath := flag.String("results", "", "path to newline-delimited JSON balance results")
	flag.Parse()

	if *resultsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*resultsPath); code != 0 {
		os.Exit(code)
	}
}

func run(resultsPath string) int {
	fmt.Println("=== Nitrogen Balance Result Validation ===")
	fmt.Println()

	results, err := loadResults(resultsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load results: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateFieldAccounting(results),
		validateSigns(results),
		validateFarmAggregation(results),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fields, failed := 0, 0
	for _, r := range results {
		fields += len(r.Balance.Fields)
		failed += len(r.Balance.FieldErrorMessages)
	}
	fmt.Println()
	fmt.Printf("Results: %d farms, %d fields, %d failed fields\n", len(results), fields, failed)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadResults(path string) ([]domain.BalanceResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []domain.BalanceResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r domain.BalanceResult
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		results = append(results, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results in %s", path)
	}
	return results, nil
}

// ── Phase 1: every total equals the sum of its parts ──

func validateFieldAccounting(results []domain.BalanceResult) *phase {
	p := &phase{name: "Field accounting"}
	forEachField(results, func(where string, fb *domain.FieldBalance) {
		s, r, e := fb.Supply, fb.Removal, fb.Emission

		checkSum(p, where+" balance", fb.Balance, s.Total, r.Total, e.Total)
		checkSum(p, where+" supply", s.Total, s.Fertilizers.Total, s.Fixation.Total, s.Deposition, s.Mineralization)
		checkBreakdown(p, where+" supply fertilizers", s.Fertilizers)
		checkItems(p, where+" fixation", s.Fixation)
		checkItems(p, where+" removal", r.Harvests)
		checkSum(p, where+" removal", r.Total, r.Harvests.Total)
		checkSum(p, where+" emission", e.Total, e.Ammonia.Total, e.Nitrate.Total)
		checkSum(p, where+" ammonia", e.Ammonia.Total, e.Ammonia.Fertilizers.Total, e.Ammonia.Residues.Total, e.Ammonia.Grazing)
		checkBreakdown(p, where+" ammonia fertilizers", e.Ammonia.Fertilizers)
		checkItems(p, where+" residues", e.Ammonia.Residues)
	})
	return p
}

func checkSum(p *phase, what string, total decimal.Decimal, parts ...decimal.Decimal) {
	if sum := domain.Sum(parts...); !total.Equal(sum) {
		p.errorf("%s: total %s != sum of parts %s", what, total, sum)
	}
}

func checkItems(p *phase, what string, t domain.ItemizedTotal) {
	parts := make([]decimal.Decimal, len(t.Items))
	for i, it := range t.Items {
		parts[i] = it.Value
	}
	checkSum(p, what+" items", t.Total, parts...)
}

func checkBreakdown(p *phase, what string, b domain.FertilizerBreakdown) {
	checkSum(p, what, b.Total, b.Mineral.Total, b.Manure.Total, b.Compost.Total, b.Other.Total)
	checkItems(p, what+" mineral", b.Mineral)
	checkItems(p, what+" manure", b.Manure)
	checkItems(p, what+" compost", b.Compost)
	checkItems(p, what+" other", b.Other)
}

// ── Phase 2: supply is positive, losses are negative ──

func validateSigns(results []domain.BalanceResult) *phase {
	p := &phase{name: "Sign conventions"}
	for _, res := range results {
		maxMineralization := annualMineralizationMax.Mul(res.TimeFrame.YearFraction())
		forEachField([]domain.BalanceResult{res}, func(where string, fb *domain.FieldBalance) {
			s, e := fb.Supply, fb.Emission
			if s.Fertilizers.Total.IsNegative() || s.Fixation.Total.IsNegative() ||
				s.Deposition.IsNegative() || s.Mineralization.IsNegative() {
				p.errorf("%s: negative supply term", where)
			}
			if s.Mineralization.GreaterThan(maxMineralization.Add(tolerance)) {
				p.errorf("%s: mineralization %s above %s", where, s.Mineralization, maxMineralization)
			}
			if fb.Removal.Total.IsPositive() {
				p.errorf("%s: positive removal %s", where, fb.Removal.Total)
			}
			if e.Ammonia.Total.IsPositive() {
				p.errorf("%s: positive ammonia emission %s", where, e.Ammonia.Total)
			}
			if !e.Nitrate.Total.IsZero() {
				p.errorf("%s: nitrate emission %s, want 0", where, e.Nitrate.Total)
			}
			if !e.Ammonia.Grazing.IsZero() {
				p.errorf("%s: grazing emission %s, want 0", where, e.Ammonia.Grazing)
			}
		})
	}
	return p
}

// ── Phase 3: farm values are area-weighted means of successful fields ──

func validateFarmAggregation(results []domain.BalanceResult) *phase {
	p := &phase{name: "Farm aggregation"}
	for _, res := range results {
		b := res.Balance
		where := "request " + res.RequestID

		failed := 0
		var area, balance, supply, removal, emission decimal.Decimal
		for _, f := range b.Fields {
			if f.Balance == nil {
				failed++
				if f.ErrorMessage == "" {
					p.errorf("%s field %s: no balance and no error message", where, f.FieldID)
				}
				continue
			}
			area = area.Add(f.Area)
			balance = balance.Add(f.Balance.Balance.Mul(f.Area))
			supply = supply.Add(f.Balance.Supply.Total.Mul(f.Area))
			removal = removal.Add(f.Balance.Removal.Total.Mul(f.Area))
			emission = emission.Add(f.Balance.Emission.Total.Mul(f.Area))
		}

		if failed != len(b.FieldErrorMessages) {
			p.errorf("%s: %d failed fields but %d error messages", where, failed, len(b.FieldErrorMessages))
		}
		if b.HasErrors != (failed > 0) {
			p.errorf("%s: has_errors=%t with %d failed fields", where, b.HasErrors, failed)
		}
		if !area.IsPositive() {
			continue
		}
		checkMean(p, where+" balance", b.Balance, balance, area)
		checkMean(p, where+" supply", b.Supply, supply, area)
		checkMean(p, where+" removal", b.Removal, removal, area)
		checkMean(p, where+" volatilization", b.Volatilization, emission, area)
	}
	return p
}

func checkMean(p *phase, what string, got, weighted, area decimal.Decimal) {
	want := weighted.Div(area)
	if got.Sub(want).Abs().GreaterThan(tolerance) {
		p.errorf("%s: %s, want area-weighted %s", what, got, want)
	}
}

func forEachField(results []domain.BalanceResult, fn func(where string, fb *domain.FieldBalance)) {
	for _, res := range results {
		for _, f := range res.Balance.Fields {
			if f.Balance == nil {
				continue
			}
			fn(fmt.Sprintf("request %s field %s", res.RequestID, f.FieldID), f.Balance)
		}
	}
}
