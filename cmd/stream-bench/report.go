package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"

	stream "github.com/dep2p/go-stream"
)

// printSummary 打印每个流对象的调用次数
func printSummary(workers []*worker, elapsed time.Duration) {
	var total int64
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("调用统计")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	for _, w := range workers {
		n := w.ticks.Load()
		total += n
		tag := "-"
		if w.tag != nil {
			tag = fmt.Sprint(w.tag)
		}
		fmt.Printf("  worker %-3d tag=%-6s ticks=%d\n", w.id, tag, n)
	}
	fmt.Printf("  总调用: %d  耗时: %s", total, elapsed.Round(time.Millisecond))
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("  (%.0f 次/秒)", float64(total)/secs)
	}
	fmt.Println()
}

// printMetrics 打印 Hub 的指标
func printMetrics(hub *stream.Hub) error {
	g := hub.Gatherer()
	if g == nil {
		return nil
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("采集指标失败: %w", err)
	}
	if len(families) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("指标")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("  %s%s %s\n", mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m))
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%.0f", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%.0f", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		avg := 0.0
		if h.GetSampleCount() > 0 {
			avg = h.GetSampleSum() / float64(h.GetSampleCount())
		}
		return fmt.Sprintf("count=%d avg=%s", h.GetSampleCount(), time.Duration(avg*float64(time.Second)))
	default:
		return "?"
	}
}
