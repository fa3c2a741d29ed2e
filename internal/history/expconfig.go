package history

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExpConfig is the subset of the experiment's config.yaml that the summary
// reports on.
type ExpConfig struct {
	Jobname   string     `yaml:"jobname"`
	Queue     string     `yaml:"queue"`
	Project   string     `yaml:"project"`
	Ncpus     int        `yaml:"ncpus"`
	Submodels []Submodel `yaml:"submodels"`
	Calendar  Calendar   `yaml:"calendar"`
}

// Submodel is one coupled model component entry.
type Submodel struct {
	Name     string `yaml:"name"`
	Model    string `yaml:"model"`
	Exe      string `yaml:"exe"`
	Ncpus    int    `yaml:"ncpus"`
	Timestep int    `yaml:"timestep"`
}

// Calendar holds the configured run length.
type Calendar struct {
	Runtime Runtime `yaml:"runtime"`
}

// Runtime is the per-submission run length.
type Runtime struct {
	Years  int `yaml:"years"`
	Months int `yaml:"months"`
	Days   int `yaml:"days"`
}

// ParseExpConfig decodes a config.yaml document.
func ParseExpConfig(data []byte) (*ExpConfig, error) {
	var cfg ExpConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.yaml: %w", err)
	}
	return &cfg, nil
}

// Submodel returns the submodel with the given name, or nil.
func (c *ExpConfig) Submodel(name string) *Submodel {
	for i := range c.Submodels {
		if c.Submodels[i].Name == name || c.Submodels[i].Model == name {
			return &c.Submodels[i]
		}
	}
	return nil
}

// SyncPath extracts the GDATADIR destination from a sync_output_to_gdata.sh
// script. Subsequent assignments replace earlier ones, matching how the
// shell would evaluate the script. Returns "" when no assignment is found.
func SyncPath(script string) (string, error) {
	f, err := os.Open(script)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var dir string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		_, rest, ok := strings.Cut(scanner.Text(), "GDATADIR=")
		if !ok {
			continue
		}
		dir = strings.TrimRight(strings.TrimSpace(rest), "/")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return dir, nil
}

// ParseTimeStamp reads a MOM time_stamp.out, whose first two lines hold the
// model start and end times as whitespace-separated date components:
//
//	2001   9   1   0   0   0  Sep
//	2001  11   1   0   0   0  Nov
//
// Both times are returned in ISO form.
func ParseTimeStamp(path string) (start, end string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for _, out := range []*string{&start, &end} {
		if !scanner.Scan() {
			return "", "", fmt.Errorf("%s: truncated time stamp file", path)
		}
		ts, err := parseTimeStampLine(scanner.Text())
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", path, err)
		}
		*out = ts
	}
	return start, end, nil
}

func parseTimeStampLine(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return "", fmt.Errorf("malformed time stamp line %q", line)
	}
	var parts [6]int
	for i := 0; i < 6; i++ {
		if _, err := fmt.Sscanf(fields[i], "%d", &parts[i]); err != nil {
			return "", fmt.Errorf("malformed time stamp line %q", line)
		}
	}
	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)
	return t.Format("2006-01-02T15:04:05"), nil
}
