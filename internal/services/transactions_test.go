package services

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name               string
		page, limit, total int
		wantPages          int
		wantNext, wantPrev bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"single partial page", 1, 10, 7, 1, false, false},
		{"exact page boundary", 1, 10, 10, 1, false, false},
		{"first of many", 1, 10, 25, 3, true, false},
		{"middle page", 2, 10, 25, 3, true, true},
		{"last page", 3, 10, 25, 3, false, true},
		{"page past the end", 5, 10, 25, 3, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPagination(tc.page, tc.limit, tc.total)
			if p.CurrentPage != tc.page {
				t.Errorf("CurrentPage = %d, want %d", p.CurrentPage, tc.page)
			}
			if p.TotalCount != tc.total {
				t.Errorf("TotalCount = %d, want %d", p.TotalCount, tc.total)
			}
			if p.TotalPages != tc.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tc.wantPages)
			}
			if p.HasNextPage != tc.wantNext {
				t.Errorf("HasNextPage = %v, want %v", p.HasNextPage, tc.wantNext)
			}
			if p.HasPrevPage != tc.wantPrev {
				t.Errorf("HasPrevPage = %v, want %v", p.HasPrevPage, tc.wantPrev)
			}
		})
	}
}

func TestNewPaginationCoversAllRows(t *testing.T) {
	// Walking every page at a given limit must visit each row exactly once.
	limit := 7
	total := 95
	visited := 0
	for page := 1; ; page++ {
		p := newPagination(page, limit, total)
		remaining := total - (page-1)*limit
		if remaining > limit {
			remaining = limit
		}
		if remaining < 0 {
			remaining = 0
		}
		visited += remaining
		if !p.HasNextPage {
			break
		}
	}
	if visited != total {
		t.Errorf("visited %d rows, want %d", visited, total)
	}
}

func stageKey(stage bson.D) string {
	if len(stage) == 0 {
		return ""
	}
	return stage[0].Key
}

func TestBuildTransactionPipelineFilterPlacement(t *testing.T) {
	pipeline := buildTransactionPipeline(TransactionQuery{
		Page:      1,
		Limit:     10,
		SchoolID:  "school-1",
		TrusteeID: "trustee-1",
		Gateway:   "edviron",
		Status:    "SUCCESS",
	})

	keys := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		keys = append(keys, stageKey(stage))
	}

	want := []string{"$match", "$lookup", "$unwind", "$project", "$match", "$sort", "$facet"}
	if len(keys) != len(want) {
		t.Fatalf("pipeline stages = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("stage %d = %s, want %s (full: %v)", i, keys[i], want[i], keys)
		}
	}

	preMatch, ok := pipeline[0][0].Value.(bson.D)
	if !ok {
		t.Fatalf("pre-match value is %T", pipeline[0][0].Value)
	}
	fields := map[string]interface{}{}
	for _, e := range preMatch {
		fields[e.Key] = e.Value
	}
	if fields["school_id"] != "school-1" || fields["trustee_id"] != "trustee-1" || fields["gateway_name"] != "edviron" {
		t.Errorf("pre-match fields = %v", fields)
	}

	postMatch, ok := pipeline[4][0].Value.(bson.D)
	if !ok || len(postMatch) != 1 || postMatch[0].Key != "status" || postMatch[0].Value != "SUCCESS" {
		t.Errorf("post-match = %v", pipeline[4][0].Value)
	}
}

func TestBuildTransactionPipelineNoFilters(t *testing.T) {
	pipeline := buildTransactionPipeline(TransactionQuery{Page: 1, Limit: 10})

	keys := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		keys = append(keys, stageKey(stage))
	}
	want := []string{"$lookup", "$unwind", "$project", "$sort", "$facet"}
	if len(keys) != len(want) {
		t.Fatalf("pipeline stages = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("stage %d = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestBuildTransactionPipelineSort(t *testing.T) {
	findSort := func(pipeline []bson.D) bson.D {
		for _, stage := range pipeline {
			if stageKey(stage) == "$sort" {
				return stage[0].Value.(bson.D)
			}
		}
		return nil
	}

	sort := findSort(buildTransactionPipeline(TransactionQuery{Page: 1, Limit: 10, Sort: "payment_time", Order: "asc"}))
	if sort[0].Key != "payment_time" || sort[0].Value != 1 {
		t.Errorf("sort = %v", sort)
	}

	sort = findSort(buildTransactionPipeline(TransactionQuery{Page: 1, Limit: 10, Sort: "createdAt"}))
	if sort[0].Key != "created_at" || sort[0].Value != -1 {
		t.Errorf("sort = %v", sort)
	}

	// Unknown sort keys fall back to created_at rather than erroring.
	sort = findSort(buildTransactionPipeline(TransactionQuery{Page: 1, Limit: 10, Sort: "drop table"}))
	if sort[0].Key != "created_at" {
		t.Errorf("sort = %v", sort)
	}
}

func TestBuildTransactionPipelinePaging(t *testing.T) {
	pipeline := buildTransactionPipeline(TransactionQuery{Page: 3, Limit: 20})
	facet := pipeline[len(pipeline)-1]
	if stageKey(facet) != "$facet" {
		t.Fatalf("last stage = %s, want $facet", stageKey(facet))
	}

	spec := facet[0].Value.(bson.D)
	data := spec[0].Value.(bson.A)
	skip := data[0].(bson.D)
	limit := data[1].(bson.D)
	if skip[0].Key != "$skip" || skip[0].Value != 40 {
		t.Errorf("skip stage = %v", skip)
	}
	if limit[0].Key != "$limit" || limit[0].Value != 20 {
		t.Errorf("limit stage = %v", limit)
	}
}
