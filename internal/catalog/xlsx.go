package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	TopicsSheet     = "Topics"
	AlgorithmsSheet = "Algorithms"
)

// Topics sheet columns: id, name, description, order, prerequisites
// (comma separated), difficulty, estimated minutes, locked.
// Algorithms sheet columns: topic id, id, name, difficulty, points, locked.
// The first row of each sheet is a header and is skipped.

// LoadXLSX reads a catalog workbook and validates it
func LoadXLSX(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	topicRows, err := f.GetRows(TopicsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", TopicsSheet, err)
	}
	algoRows, err := f.GetRows(AlgorithmsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", AlgorithmsSheet, err)
	}

	doc := &Document{}
	index := make(map[string]int)
	for i, row := range topicRows {
		if i == 0 || blankRow(row) {
			continue
		}
		ts, err := parseTopicRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", TopicsSheet, i+1, err)
		}
		index[ts.ID] = len(doc.Topics)
		doc.Topics = append(doc.Topics, ts)
	}

	for i, row := range algoRows {
		if i == 0 || blankRow(row) {
			continue
		}
		topicID := cell(row, 0)
		pos, ok := index[topicID]
		if !ok {
			return nil, fmt.Errorf("%s row %d: unknown topic %q", AlgorithmsSheet, i+1, topicID)
		}
		as, err := parseAlgorithmRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", AlgorithmsSheet, i+1, err)
		}
		doc.Topics[pos].Algorithms = append(doc.Topics[pos].Algorithms, as)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseTopicRow(row []string) (TopicSpec, error) {
	order, err := intCell(row, 3)
	if err != nil {
		return TopicSpec{}, fmt.Errorf("order: %w", err)
	}
	minutes, err := intCell(row, 6)
	if err != nil {
		return TopicSpec{}, fmt.Errorf("estimated minutes: %w", err)
	}
	ts := TopicSpec{
		ID:               cell(row, 0),
		Name:             cell(row, 1),
		Description:      cell(row, 2),
		Order:            order,
		Difficulty:       strings.ToLower(cell(row, 5)),
		EstimatedMinutes: minutes,
		Locked:           boolCell(row, 7),
	}
	for _, p := range strings.Split(cell(row, 4), ",") {
		if p = strings.TrimSpace(p); p != "" {
			ts.Prerequisites = append(ts.Prerequisites, p)
		}
	}
	return ts, nil
}

func parseAlgorithmRow(row []string) (AlgorithmSpec, error) {
	points, err := intCell(row, 4)
	if err != nil {
		return AlgorithmSpec{}, fmt.Errorf("points: %w", err)
	}
	return AlgorithmSpec{
		ID:         cell(row, 1),
		Name:       cell(row, 2),
		Difficulty: strings.ToLower(cell(row, 3)),
		Points:     points,
		Locked:     boolCell(row, 5),
	}, nil
}

// GetRows trims trailing empty cells, so short rows are normal
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intCell(row []string, i int) (int, error) {
	v := cell(row, i)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func boolCell(row []string, i int) bool {
	switch strings.ToLower(cell(row, i)) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
