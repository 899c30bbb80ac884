package search

import (
	"context"

	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/indices"
	"github.com/fundwit/go-commons/types"
)

var (
	SearchEntityIDsFunc = SearchEntityIDs

	MaxSearchHits = 1000
)

// SearchEntityIDs returns the ids of entities of entityType whose title or description match keyword.
// Visibility is not applied here.
func SearchEntityIDs(ctx context.Context, entityType domain.EntityType, keyword string) ([]types.ID, error) {
	filters := []es.H{
		{"term": es.H{"entityType": entityType}},
		{"multi_match": es.H{"query": keyword, "fields": []string{"title", "description"}, "operator": "AND"}},
	}
	query := es.H{
		"size":    MaxSearchHits,
		"_source": false,
		"query":   es.H{"bool": es.H{"filter": filters}},
	}
	r, err := es.SearchFunc(ctx, indices.EntityIndexName, query)
	if err != nil {
		return nil, err
	}

	ids := make([]types.ID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := types.ParseID(hit.Id)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
