package question

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet columns, matched case-insensitively against the header row.
// Options are either spread over option_a..option_z columns or packed into a
// single "options" column separated by "|".
var xlsxHeader = []string{
	"id", "subject", "chapter", "topic", "difficulty", "question_text",
	"options", "correct_answer", "solution", "year", "exam_type", "question_type",
}

func loadXLSX(path string) ([]Question, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open question sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("question sheet %s has no worksheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("question sheet %s: missing id column", path)
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var questions []Question
	for n, row := range rows[1:] {
		if cell(row, "id") == "" {
			continue
		}

		q := Question{
			ID:            cell(row, "id"),
			Subject:       cell(row, "subject"),
			Chapter:       cell(row, "chapter"),
			Topic:         cell(row, "topic"),
			Text:          cell(row, "question_text"),
			CorrectAnswer: cell(row, "correct_answer"),
			Solution:      cell(row, "solution"),
			ExamType:      cell(row, "exam_type"),
		}
		if err := q.Difficulty.UnmarshalText([]byte(cell(row, "difficulty"))); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		if q.Type, err = ParseType(cell(row, "question_type")); err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		if y := cell(row, "year"); y != "" {
			if q.Year, err = strconv.Atoi(y); err != nil {
				return nil, fmt.Errorf("row %d: invalid year %q", n+2, y)
			}
		}

		if packed := cell(row, "options"); packed != "" {
			for _, opt := range strings.Split(packed, "|") {
				q.Options = append(q.Options, strings.TrimSpace(opt))
			}
		} else {
			for i := 0; i < 26; i++ {
				opt := cell(row, "option_"+strings.ToLower(OptionLetter(i)))
				if opt == "" {
					break
				}
				q.Options = append(q.Options, opt)
			}
		}

		questions = append(questions, q)
	}
	return questions, nil
}

// WriteXLSX exports questions to a spreadsheet readable by LoadBank.
func WriteXLSX(path string, questions []Question) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := make([]any, len(xlsxHeader))
	for i, h := range xlsxHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, q := range questions {
		row := []any{
			q.ID, q.Subject, q.Chapter, q.Topic, q.Difficulty.String(), q.Text,
			strings.Join(q.Options, "|"), q.CorrectAnswer, q.Solution, q.Year,
			q.ExamType, string(q.Type),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write question %s: %w", q.ID, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save question sheet: %w", err)
	}
	return nil
}
