package bench

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(report Report) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

func (r *CsvRendererImpl) Render(report Report) (string, error) {
	data := make([][]string, 0, len(report.Users)+1)
	data = append(data, header(report.Category))
	for _, u := range report.Users {
		data = append(data, row(report.Category, u))
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, record := range data {
		if err := writer.Write(record); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

func header(category Category) []string {
	columns := []string{"User ID", "Name", "Projects"}
	switch category {
	case CategoryFullyBenched:
		columns = append(columns, "On Bench Since", "Last Updated By")
	case CategoryPartialBenched:
		columns = append(columns, "On Partial Bench Since", "Updated By", "Total Hours")
	case CategoryNonBillable:
		columns = append(columns, "Non-billable Since", "Updated By", "Non-billable Hours", "Total Hours", "Reason For Non-billability")
	case CategoryOverUtilised:
		columns = append(columns, "Total Hours")
	}
	return append(columns, "Skills")
}

func row(category Category, u UserWeek) []string {
	since := ""
	if !u.WeekStart.IsZero() {
		since = u.WeekStart.Format("2006-01-02")
	}
	values := []string{strconv.Itoa(u.UserId), u.Name, strings.Join(u.Projects, ", ")}
	switch category {
	case CategoryFullyBenched:
		values = append(values, since, orNA(u.UpdatedBy))
	case CategoryPartialBenched:
		values = append(values, since, orNA(u.UpdatedBy), u.Total.StringFixed(2))
	case CategoryNonBillable:
		values = append(values, since, orNA(u.UpdatedBy), u.NonBillable.StringFixed(2), u.Total.StringFixed(2), orNA(u.Remark))
	case CategoryOverUtilised:
		values = append(values, u.Total.StringFixed(2))
	}
	return append(values, orNA(u.Skill))
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
