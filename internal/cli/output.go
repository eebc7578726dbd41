package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/repodp/repodp/internal/domain"
)

// Output управляет форматированием вывода CLI.
//
// Данные идут в stdout (таблица или JSON), сообщения — в stderr,
// чтобы вывод можно было передавать по конвейеру.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output, пишущий в stdout/stderr.
// Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{jsonMode: jsonMode, w: os.Stdout, errW: os.Stderr}
}

// NewOutputTo создаёт Output с заданными writer-ами (для тестов).
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// RunReport выводит результаты шагов одного прогона.
func (o *Output) RunReport(report *domain.ExecutionReport) {
	if o.jsonMode {
		o.JSON(report)
		return
	}

	var rows [][]string
	for _, result := range report.OrderedResults() {
		artifact := result.OutputArtifact
		if artifact == "" {
			artifact = "-"
		}
		rows = append(rows, []string{
			result.StepName,
			string(result.Status),
			result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
			artifact,
		})
	}
	o.Table([]string{"STEP", "STATUS", "DURATION", "ARTIFACT"}, rows)
	o.Success(fmt.Sprintf("Run %s: success=%t, %d steps completed",
		report.RunID, report.OverallSuccess, len(report.CompletedSteps)))
}

// BatchReport выводит сводку пакетного прогона по репозиториям
// и итоги сшивки артефактов.
func (o *Output) BatchReport(report *domain.BatchReport) {
	if o.jsonMode {
		o.JSON(report)
		return
	}

	var rows [][]string
	for _, name := range report.Repositories {
		repoReport := report.Reports[name]
		if repoReport == nil {
			continue
		}
		status := "FAILED"
		if repoReport.OverallSuccess {
			status = "SUCCEEDED"
		}
		rows = append(rows, []string{
			name,
			status,
			strconv.Itoa(len(repoReport.CompletedSteps)),
			repoReport.Duration().Round(time.Millisecond).String(),
		})
	}
	o.Table([]string{"REPOSITORY", "STATUS", "COMPLETED", "DURATION"}, rows)

	for _, summary := range report.MergedArtifacts {
		o.Success(fmt.Sprintf("Merged %s: %d records from %d repositories (%d skipped)",
			summary.StepName, summary.TotalRecords, summary.SourceRepoCount, summary.SkippedRecords))
	}
	o.Success(fmt.Sprintf("Batch %s: %d succeeded, %d failed",
		report.BatchID, report.SucceededCount, report.FailedCount))
}
