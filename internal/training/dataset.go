package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat/distuv"
)

const domainColumnPrefix = "domain_"

// FeatureNames is the column order of every generated record.
var FeatureNames = []string{
	"cosine_sim_hashing",
	"cosine_sim_ngram",
	"cosine_sim_gemini",
	"skill_match_ratio",
	"required_skills_count",
	"resume_skills_count",
	"experience_match_ratio",
	"years_experience",
	"required_years",
	"education_match_ratio",
	"has_relevant_degree",
	"resume_length",
	"job_description_length",
	"domain_fullstack",
	"domain_cloud",
	"domain_data",
	"domain_devops",
}

// Record is one labelled sample; Features follows the dataset's FeatureNames.
type Record struct {
	Features []float64
	Label    int
}

type Dataset struct {
	FeatureNames []string
	Records      []Record
}

// Column returns the index of a feature, or -1.
func (d *Dataset) Column(name string) int {
	for i, n := range d.FeatureNames {
		if n == name {
			return i
		}
	}
	return -1
}

// DomainColumns lists the one-hot domain flag columns in column order.
func (d *Dataset) DomainColumns() []string {
	var cols []string
	for _, n := range d.FeatureNames {
		if strings.HasPrefix(n, domainColumnPrefix) {
			cols = append(cols, n)
		}
	}
	return cols
}

// DomainName turns "domain_fullstack" into "Fullstack".
func DomainName(column string) string {
	return cases.Title(language.English).String(strings.TrimPrefix(column, domainColumnPrefix))
}

func (d *Dataset) Matrix() ([][]float64, []int) {
	X := make([][]float64, len(d.Records))
	y := make([]int, len(d.Records))
	for i, r := range d.Records {
		X[i] = r.Features
		y[i] = r.Label
	}
	return X, y
}

// WriteCSV writes a header row followed by one row per record, label last.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), d.FeatureNames...), "label")); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(d.FeatureNames)+1)
	for _, r := range d.Records {
		for i, v := range r.Features {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = strconv.Itoa(r.Label)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// GenerateDataset draws a synthetic dataset of n records. The same seed
// always yields the same dataset.
func GenerateDataset(n int, seed uint64) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}

	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)

	beta := func(a, b float64) []float64 {
		return draw(n, distuv.Beta{Alpha: a, Beta: b, Src: src}.Rand)
	}
	poisson := func(lambda float64) []float64 {
		return draw(n, distuv.Poisson{Lambda: lambda, Src: src}.Rand)
	}
	exponential := func(mean float64) []float64 {
		return draw(n, distuv.Exponential{Rate: 1 / mean, Src: src}.Rand)
	}
	normal := func(mu, sigma float64) []float64 {
		return draw(n, distuv.Normal{Mu: mu, Sigma: sigma, Src: src}.Rand)
	}
	choice := func(values, probs []float64) []float64 {
		return draw(n, func() float64 { return pick(rng, values, probs) })
	}
	flag := func(p float64) []float64 {
		return choice([]float64{0, 1}, []float64{1 - p, p})
	}

	columns := map[string][]float64{}
	columns["cosine_sim_hashing"] = beta(2, 3)
	columns["cosine_sim_ngram"] = beta(2, 3)
	columns["cosine_sim_gemini"] = beta(2, 3)
	columns["skill_match_ratio"] = beta(3, 2)
	columns["required_skills_count"] = poisson(8)
	columns["resume_skills_count"] = poisson(12)
	columns["experience_match_ratio"] = beta(2, 2)
	columns["years_experience"] = exponential(3)
	columns["required_years"] = exponential(4)
	columns["education_match_ratio"] = choice([]float64{0.3, 0.8, 1.0}, []float64{0.2, 0.6, 0.2})
	columns["has_relevant_degree"] = flag(0.7)
	columns["resume_length"] = normal(2000, 500)
	columns["job_description_length"] = normal(1500, 300)
	columns["domain_fullstack"] = flag(0.3)
	columns["domain_cloud"] = flag(0.2)
	columns["domain_data"] = flag(0.2)
	columns["domain_devops"] = flag(0.1)

	noise := normal(0, 0.05)

	ds := &Dataset{FeatureNames: append([]string(nil), FeatureNames...), Records: make([]Record, n)}
	for i := 0; i < n; i++ {
		features := make([]float64, len(FeatureNames))
		for f, name := range FeatureNames {
			features[f] = columns[name][i]
		}
		ds.Records[i] = Record{Features: features, Label: labelFor(columns, i, noise[i])}
	}
	return ds, nil
}

// labelFor applies the weighted rule plus noise and thresholds at 0.5.
func labelFor(c map[string][]float64, i int, noise float64) int {
	skill := c["skill_match_ratio"][i]

	score := 0.3*c["cosine_sim_hashing"][i] +
		0.3*c["cosine_sim_ngram"][i] +
		0.2*skill +
		0.1*c["experience_match_ratio"][i] +
		0.1*c["education_match_ratio"][i]

	switch {
	case c["domain_fullstack"][i] == 1 && skill > 0.6:
		score += 0.1
	case c["domain_cloud"][i] == 1 && skill > 0.7:
		score += 0.1
	case c["domain_data"][i] == 1 && skill > 0.8:
		score += 0.1
	case c["domain_devops"][i] == 1 && skill > 0.8:
		score += 0.1
	}

	if score+noise > 0.5 {
		return 1
	}
	return 0
}

func draw(n int, sample func() float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = sample()
	}
	return out
}

func pick(rng *rand.Rand, values, probs []float64) float64 {
	u := rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// Split shuffles record indices with seed and holds out ceil(n*testRatio)
// records for testing.
func Split(d *Dataset, testRatio float64, seed uint64) (train, test *Dataset, err error) {
	n := len(d.Records)
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	testSize := int(math.Ceil(float64(n) * testRatio))
	if testSize >= n {
		return nil, nil, fmt.Errorf("dataset of %d records too small for test ratio %v", n, testRatio)
	}

	perm := rand.New(rand.NewPCG(seed, ^seed)).Perm(n)

	test = &Dataset{FeatureNames: d.FeatureNames}
	train = &Dataset{FeatureNames: d.FeatureNames}
	for k, i := range perm {
		if k < testSize {
			test.Records = append(test.Records, d.Records[i])
		} else {
			train.Records = append(train.Records, d.Records[i])
		}
	}
	return train, test, nil
}
