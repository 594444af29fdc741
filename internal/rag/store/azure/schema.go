package azure

import (
	"encoding/json"

	"github.com/Yates-Labs/folio/internal/rag/store"
)

type field struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable,omitempty"`
	Filterable          bool   `json:"filterable,omitempty"`
	Sortable            bool   `json:"sortable,omitempty"`
	Retrievable         *bool  `json:"retrievable,omitempty"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

type algorithm struct {
	Name                    string          `json:"name"`
	Kind                    string          `json:"kind"`
	HNSWParameters          *hnswParameters `json:"hnswParameters,omitempty"`
	ExhaustiveKnnParameters *knnParameters  `json:"exhaustiveKnnParameters,omitempty"`
}

type hnswParameters struct {
	M              int    `json:"m"`
	EfConstruction int    `json:"efConstruction"`
	EfSearch       int    `json:"efSearch"`
	Metric         string `json:"metric"`
}

type knnParameters struct {
	Metric string `json:"metric"`
}

type profile struct {
	Name      string `json:"name"`
	Algorithm string `json:"algorithm"`
}

type fieldRef struct {
	FieldName string `json:"fieldName"`
}

type semanticConfiguration struct {
	Name              string `json:"name"`
	PrioritizedFields struct {
		TitleField               fieldRef   `json:"titleField"`
		PrioritizedContentFields []fieldRef `json:"prioritizedContentFields"`
	} `json:"prioritizedFields"`
}

type indexSchema struct {
	Name         string  `json:"name"`
	Fields       []field `json:"fields"`
	VectorSearch struct {
		Algorithms []algorithm `json:"algorithms"`
		Profiles   []profile   `json:"profiles"`
	} `json:"vectorSearch"`
	Semantic struct {
		Configurations []semanticConfiguration `json:"configurations"`
	} `json:"semantic"`
}

func buildIndexSchema(def store.IndexDefinition) indexSchema {
	hidden := false
	s := indexSchema{
		Name: def.Name,
		Fields: []field{
			{Name: store.FieldID, Type: "Edm.String", Key: true, Filterable: true, Sortable: true},
			{Name: store.FieldOrdinal, Type: "Edm.Int32", Filterable: true, Sortable: true},
			{Name: store.FieldContent, Type: "Edm.String", Searchable: true},
			{Name: store.FieldFilepath, Type: "Edm.String"},
			{Name: store.FieldTitle, Type: "Edm.String", Searchable: true},
			{Name: store.FieldURL, Type: "Edm.String"},
			{
				Name:                store.FieldContentVector,
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				Retrievable:         &hidden,
				Dimensions:          def.Dimensions,
				VectorSearchProfile: hnswProfile,
			},
		},
	}

	s.VectorSearch.Algorithms = []algorithm{
		{
			Name: "myHnsw",
			Kind: "hnsw",
			HNSWParameters: &hnswParameters{
				M:              def.HNSW.M,
				EfConstruction: def.HNSW.EfConstruction,
				EfSearch:       def.HNSW.EfSearch,
				Metric:         "cosine",
			},
		},
		{
			Name:                    "myExhaustiveKnn",
			Kind:                    "exhaustiveKnn",
			ExhaustiveKnnParameters: &knnParameters{Metric: "cosine"},
		},
	}
	s.VectorSearch.Profiles = []profile{
		{Name: hnswProfile, Algorithm: "myHnsw"},
		{Name: exhaustiveProfile, Algorithm: "myExhaustiveKnn"},
	}

	var sc semanticConfiguration
	sc.Name = semanticConfig
	sc.PrioritizedFields.TitleField = fieldRef{FieldName: store.FieldTitle}
	sc.PrioritizedFields.PrioritizedContentFields = []fieldRef{{FieldName: store.FieldContent}}
	s.Semantic.Configurations = []semanticConfiguration{sc}

	return s
}

type uploadAction struct {
	Action string `json:"@search.action"`
	store.Document
}

// MarshalJSON flattens the action marker into the document object.
func (a uploadAction) MarshalJSON() ([]byte, error) {
	doc, err := json.Marshal(a.Document)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, err
	}
	m["@search.action"] = a.Action
	return json.Marshal(m)
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Fields string    `json:"fields"`
}

type searchRequest struct {
	Search                string        `json:"search"`
	Select                string        `json:"select"`
	Top                   int           `json:"top"`
	OrderBy               string        `json:"orderby,omitempty"`
	QueryType             string        `json:"queryType,omitempty"`
	SemanticConfiguration string        `json:"semanticConfiguration,omitempty"`
	VectorQueries         []vectorQuery `json:"vectorQueries,omitempty"`
}

func buildSearchRequest(q store.Query) searchRequest {
	text := q.Text
	if text == "" {
		text = "*"
	}
	req := searchRequest{Search: text, Select: selectFields, Top: q.Top}

	switch q.Mode {
	case store.ModeOrdered:
		req.Search = "*"
		req.OrderBy = store.FieldOrdinal + " asc," + store.FieldID + " asc"
	case store.ModeSemantic:
		req.QueryType = "semantic"
		req.SemanticConfiguration = semanticConfig
		if len(q.Vector) > 0 {
			req.VectorQueries = []vectorQuery{{
				Kind:   "vector",
				Vector: q.Vector,
				K:      q.Top,
				Fields: store.FieldContentVector,
			}}
		}
	}
	return req
}

type searchResult struct {
	store.Document
	Score         float64  `json:"@search.score"`
	RerankerScore *float64 `json:"@search.rerankerScore"`
}
