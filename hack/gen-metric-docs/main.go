// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

// gen-metric-docs writes a Markdown reference of the metrics powerdeck
// writes to node_exporter textfiles.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/powerdeck/powerdeck/internal/exporter/prometheus/collector"
	"github.com/powerdeck/powerdeck/internal/logger"
)

// MetricInfo describes one metric family
type MetricInfo struct {
	Name        string
	Type        string
	Description string
	Labels      []string
}

var (
	fqNameRe = regexp.MustCompile(`fqName: "([^"]+)"`)
	helpRe   = regexp.MustCompile(`help: "([^"]+)"`)
	labelsRe = regexp.MustCompile(`variableLabels: \{([^}]*)\}`)
)

// describe returns the metric families a collector declares. Desc keeps
// its fields private, so they are parsed from Desc.String.
func describe(c prometheus.Collector) ([]MetricInfo, error) {
	ch := make(chan *prometheus.Desc, 16)
	go func() {
		c.Describe(ch)
		close(ch)
	}()

	var metrics []MetricInfo
	for desc := range ch {
		s := desc.String()
		name := fqNameRe.FindStringSubmatch(s)
		help := helpRe.FindStringSubmatch(s)
		if name == nil || help == nil {
			return nil, fmt.Errorf("cannot parse metric description %s", s)
		}

		m := MetricInfo{Name: name[1], Type: "GAUGE", Description: help[1]}
		if strings.HasSuffix(m.Name, "_total") {
			m.Type = "COUNTER"
		}
		if l := labelsRe.FindStringSubmatch(s); l != nil && l[1] != "" {
			for _, label := range strings.Split(l[1], ",") {
				m.Labels = append(m.Labels, strings.TrimSpace(label))
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

type section struct {
	title  string
	prefix string
}

var sections = []section{
	{"Power Cap Metrics", "powerdeck_power_"},
	{"Backlight Metrics", "powerdeck_backlight_"},
	{"Other Metrics", ""},
}

// generateMarkdown renders metrics grouped by section, sorted by name
func generateMarkdown(metrics []MetricInfo) string {
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Name < metrics[j].Name
	})

	var md strings.Builder
	md.WriteString("# Powerdeck Metrics\n\n")
	md.WriteString("`powerdeck status --textfile=<path>` writes these metrics for the node_exporter textfile collector. ")
	md.WriteString("Values are read once per invocation.\n\n")

	done := map[string]bool{}
	for _, sec := range sections {
		var group []MetricInfo
		for _, m := range metrics {
			if !done[m.Name] && strings.HasPrefix(m.Name, sec.prefix) {
				group = append(group, m)
				done[m.Name] = true
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(&md, "## %s\n\n", sec.title)
		for _, m := range group {
			fmt.Fprintf(&md, "### %s\n\n", m.Name)
			fmt.Fprintf(&md, "- **Type**: %s\n", m.Type)
			fmt.Fprintf(&md, "- **Description**: %s\n", m.Description)
			if len(m.Labels) > 0 {
				md.WriteString("- **Labels**:")
				for _, l := range m.Labels {
					fmt.Fprintf(&md, " `%s`", l)
				}
				md.WriteString("\n")
			}
			md.WriteString("\n")
		}
	}

	md.WriteString("---\n\nGenerated by hack/gen-metric-docs.\n")
	return md.String()
}

// generate describes all collectors and writes the Markdown to output
func generate(output string, log io.Writer) error {
	collectors := []prometheus.Collector{
		collector.NewDeviceCollector(nil, nil, logger.Discard()),
		collector.NewBuildInfoCollector(),
	}

	var all []MetricInfo
	for _, c := range collectors {
		metrics, err := describe(c)
		if err != nil {
			return err
		}
		all = append(all, metrics...)
	}
	fmt.Fprintf(log, "Extracted %d metrics\n", len(all))

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output, []byte(generateMarkdown(all)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(log, "Wrote %s\n", output)
	return nil
}

func main() {
	app := kingpin.New("gen-metric-docs", "Generate the powerdeck metrics reference.")
	output := app.Flag("output", "Path to the Markdown file").Default("docs/metrics.md").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := generate(*output, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
