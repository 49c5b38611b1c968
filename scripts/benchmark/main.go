// Command benchmark drives a running cardgrab server with product URLs and
// reports latency percentiles and field coverage per marketplace.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"
)

var (
	apiURL      = flag.String("api-url", "http://localhost:8080", "cardgrab API base URL")
	apiKey      = flag.String("api-key", "", "API key sent as X-API-Key")
	rounds      = flag.Int("rounds", 3, "times every URL is requested")
	concurrency = flag.Int("concurrency", 2, "requests in flight at once")
	maxAge      = flag.Int64("max-age", 0, "max_age in ms; >0 lets repeat rounds hit the cache")
	output      = flag.String("output", "", "optional JSON report path")
	urlList     = flag.String("urls", "", "comma-separated product URLs overriding the built-in set")
)

var defaultURLs = []string{
	"https://www.ozon.ru/product/smartfon-apple-iphone-15-128-gb-chernyy-1187003658/",
	"https://www.ozon.ru/product/naushniki-besprovodnye-xiaomi-redmi-buds-4-active-860016520/",
	"https://www.wildberries.ru/catalog/146972810/detail.aspx",
	"https://www.wildberries.ru/catalog/18479473/detail.aspx",
}

type sample struct {
	URL      string        `json:"url"`
	Site     string        `json:"site"`
	Round    int           `json:"round"`
	Status   int           `json:"status"`
	Cache    string        `json:"cache,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
	Fields   int           `json:"fields"`
	Images   int           `json:"images"`
	ErrorMsg string        `json:"error,omitempty"`
}

func (s sample) ok() bool { return s.Status == http.StatusOK && s.ErrorMsg == "" }

type siteSummary struct {
	Site     string        `json:"site"`
	Requests int           `json:"requests"`
	Failed   int           `json:"failed"`
	CacheHit int           `json:"cache_hits"`
	P50      time.Duration `json:"p50_ns"`
	P95      time.Duration `json:"p95_ns"`
	Coverage float64       `json:"coverage_percent"`
}

type job struct {
	url   string
	round int
}

func main() {
	flag.Parse()

	targets := defaultURLs
	if *urlList != "" {
		targets = nil
		for _, u := range strings.Split(*urlList, ",") {
			if u = strings.TrimSpace(u); u != "" {
				targets = append(targets, u)
			}
		}
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	if err := ping(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "cardgrab not reachable at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	fmt.Printf("%d URLs x %d rounds, concurrency %d, max_age %dms\n\n",
		len(targets), *rounds, *concurrency, *maxAge)

	samples := run(client, targets)
	summaries := summarize(samples)
	printSummaries(summaries)

	if *output != "" {
		if err := writeReport(*output, samples, summaries); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nreport written to %s\n", *output)
	}
}

func ping(client *http.Client, base string) error {
	resp, err := client.Get(base + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

// run finishes round N for every URL before starting round N+1 so later
// rounds can observe cache hits.
func run(client *http.Client, targets []string) []sample {
	var (
		mu  sync.Mutex
		out []sample
	)
	workers := max(*concurrency, 1)

	for round := 1; round <= *rounds; round++ {
		jobs := make(chan job)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					s := fetch(client, j)
					fmt.Printf("round %d  %-4s %3d %6dms  %s\n", s.Round, s.Site, s.Status, s.Latency.Milliseconds(), s.URL)
					mu.Lock()
					out = append(out, s)
					mu.Unlock()
				}
			}()
		}
		for _, u := range targets {
			jobs <- job{url: u, round: round}
		}
		close(jobs)
		wg.Wait()
	}
	return out
}

type productResponse struct {
	Success bool `json:"success"`
	Product *struct {
		Title       string   `json:"title"`
		Description *string  `json:"description"`
		Rating      *string  `json:"rating"`
		Reviews     *int     `json:"reviews"`
		Price       *int     `json:"price"`
		Images      []string `json:"images"`
		Source      string   `json:"source"`
	} `json:"product"`
	Cache string `json:"cache_status"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func fetch(client *http.Client, j job) sample {
	s := sample{URL: j.url, Site: siteOf(j.url), Round: j.round}

	body := map[string]any{"url": j.url}
	if *maxAge > 0 {
		body["max_age"] = *maxAge
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/product", bytes.NewReader(payload))
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	s.Latency = time.Since(start)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	defer resp.Body.Close()
	s.Status = resp.StatusCode

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		s.ErrorMsg = "decode: " + err.Error()
		return s
	}
	if pr.Error != nil {
		s.ErrorMsg = pr.Error.Code + ": " + pr.Error.Message
	}
	s.Cache = pr.Cache
	if p := pr.Product; p != nil {
		s.Images = len(p.Images)
		for _, filled := range []bool{
			p.Title != "" && p.Title != "Товар",
			p.Description != nil,
			p.Rating != nil,
			p.Reviews != nil,
			p.Price != nil,
			len(p.Images) > 0,
		} {
			if filled {
				s.Fields++
			}
		}
	}
	return s
}

const recordFields = 6

func siteOf(u string) string {
	switch {
	case strings.Contains(u, "ozon."):
		return "ozon"
	case strings.Contains(u, "wildberries.") || strings.Contains(u, "wb.ru"):
		return "wb"
	}
	return "other"
}

func summarize(samples []sample) []siteSummary {
	bySite := map[string][]sample{}
	for _, s := range samples {
		bySite[s.Site] = append(bySite[s.Site], s)
	}

	out := make([]siteSummary, 0, len(bySite))
	for site, ss := range bySite {
		sum := siteSummary{Site: site, Requests: len(ss)}
		var latencies []time.Duration
		fields := 0
		for _, s := range ss {
			if !s.ok() {
				sum.Failed++
				continue
			}
			if s.Cache == "hit" {
				sum.CacheHit++
			}
			latencies = append(latencies, s.Latency)
			fields += s.Fields
		}
		if ok := len(latencies); ok > 0 {
			sum.P50 = percentile(latencies, 50)
			sum.P95 = percentile(latencies, 95)
			sum.Coverage = float64(fields) / float64(ok*recordFields) * 100
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site < out[j].Site })
	return out
}

// percentile uses nearest rank on a sorted copy.
func percentile(ds []time.Duration, p int) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func printSummaries(sums []siteSummary) {
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "site\trequests\tfailed\tcache hits\tp50\tp95\tcoverage")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%dms\t%dms\t%.0f%%\n",
			s.Site, s.Requests, s.Failed, s.CacheHit,
			s.P50.Milliseconds(), s.P95.Milliseconds(), s.Coverage)
	}
	w.Flush()
}

func writeReport(path string, samples []sample, sums []siteSummary) error {
	data, err := json.MarshalIndent(map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"api_url":      *apiURL,
		"summary":      sums,
		"samples":      samples,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
