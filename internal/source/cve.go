package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"feedkeeper/internal/config"
	"feedkeeper/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	nvdDetailURL  = "https://nvd.nist.gov/vuln/detail/"
	nvdTimeLayout = "2006-01-02T15:04:05.000Z"

	// The API rejects publication ranges longer than 120 days.
	nvdMaxWindow   = 120 * 24 * time.Hour
	nvdFirstWindow = 24 * time.Hour
)

type nvdResponse struct {
	ResultsPerPage  int `json:"resultsPerPage"`
	StartIndex      int `json:"startIndex"`
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	VulnStatus   string `json:"vulnStatus"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		V40 []nvdMetric `json:"cvssMetricV40"`
		V31 []nvdMetric `json:"cvssMetricV31"`
		V30 []nvdMetric `json:"cvssMetricV30"`
		V2  []nvdMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
}

type nvdMetric struct {
	BaseSeverity string `json:"baseSeverity"`
	CVSSData     struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

// CVE collects vulnerabilities published since the last successful check.
type CVE struct {
	getter Getter
	cfg    config.CVESettings
	now    func() time.Time
	log    *slog.Logger
}

// NewCVE creates the NVD collector.
func NewCVE(getter Getter, cfg config.CVESettings, now func() time.Time, log *slog.Logger) *CVE {
	return &CVE{getter: getter, cfg: cfg, now: now, log: log}
}

// Name implements Source.
func (c *CVE) Name() string { return config.SourceCVE }

// Collect pages through the API until every result in the window, or
// MaxResults of them, have been read.
func (c *CVE) Collect(ctx context.Context) (*Batch, error) {
	end := c.now().UTC()
	start := end.Add(-nvdFirstWindow)
	if c.cfg.LastCheckTimestamp > 0 {
		start = time.UnixMilli(c.cfg.LastCheckTimestamp).UTC()
	}
	if end.Sub(start) > nvdMaxWindow {
		start = end.Add(-nvdMaxWindow)
	}

	var header http.Header
	if c.cfg.APIKey != "" {
		header = http.Header{"apiKey": {c.cfg.APIKey}}
	}

	var items []model.FeedItem
	skipped := 0
	for index := 0; len(items) < c.cfg.MaxResults; {
		q := url.Values{}
		q.Set("pubStartDate", start.Format(nvdTimeLayout))
		q.Set("pubEndDate", end.Format(nvdTimeLayout))
		q.Set("resultsPerPage", strconv.Itoa(c.cfg.ResultsPerPage))
		q.Set("startIndex", strconv.Itoa(index))

		body, err := c.getter.Get(ctx, c.cfg.APIEndpoint+"?"+q.Encode(), header)
		if err != nil {
			return nil, fmt.Errorf("fetch cves from %d: %w", index, err)
		}
		var page nvdResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode cve page: %w", err)
		}

		for _, v := range page.Vulnerabilities {
			item, ok := cveItem(v.CVE)
			if !ok {
				skipped++
				continue
			}
			items = append(items, item)
		}

		index += len(page.Vulnerabilities)
		if len(page.Vulnerabilities) == 0 || index >= page.TotalResults {
			break
		}
	}
	if len(items) > c.cfg.MaxResults {
		items = items[:c.cfg.MaxResults]
	}

	c.log.Info("collected cves",
		"since", start.Format(time.RFC3339),
		"count", len(items),
		"skipped", skipped,
	)

	checked := end.UnixMilli()
	return &Batch{
		Items: items,
		Update: func(s *config.Settings) {
			s.CVE.LastCheckTimestamp = checked
			s.LastCheckTimestamp = checked
		},
	}, nil
}

func cveItem(c nvdCVE) (model.FeedItem, bool) {
	if c.ID == "" || strings.EqualFold(c.VulnStatus, "Rejected") {
		return model.FeedItem{}, false
	}
	desc := englishDescription(c)
	if desc == "" || strings.HasPrefix(desc, "** REJECT **") {
		return model.FeedItem{}, false
	}

	item := model.FeedItem{
		Title:       c.ID,
		Link:        nvdDetailURL + c.ID,
		Description: desc,
		PublishedAt: c.Published,
		GUID:        c.ID,
		Source:      config.SourceCVE,
	}
	if sev, score := severity(c); sev != "" {
		item.Title = fmt.Sprintf("%s (%s %.1f)", c.ID, sev, score)
		item.Categories = []string{sev}
	}
	return item, true
}

func englishDescription(c nvdCVE) string {
	for _, d := range c.Descriptions {
		if d.Lang == "en" {
			return strings.TrimSpace(d.Value)
		}
	}
	if len(c.Descriptions) > 0 {
		return strings.TrimSpace(c.Descriptions[0].Value)
	}
	return ""
}

// severity returns the base severity and score of the newest CVSS version
// present.
func severity(c nvdCVE) (string, float64) {
	for _, metrics := range [][]nvdMetric{c.Metrics.V40, c.Metrics.V31, c.Metrics.V30, c.Metrics.V2} {
		if len(metrics) == 0 {
			continue
		}
		m := metrics[0]
		sev := m.CVSSData.BaseSeverity
		if sev == "" {
			sev = m.BaseSeverity
		}
		if sev != "" {
			return strings.ToUpper(sev), m.CVSSData.BaseScore
		}
	}
	return "", 0
}
