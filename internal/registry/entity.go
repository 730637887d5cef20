package registry

// Entity is the reference data the enrichment needs from one LEI record.
type Entity struct {
	LEI       string   `json:"lei" yaml:"lei"`
	LegalName string   `json:"legal_name" yaml:"legal_name"`
	BIC       []string `json:"bic" yaml:"bic"`
	Country   string   `json:"country" yaml:"country"`
}

// lei-records response body. Only the fields the enrichment reads are mapped.
type recordsResponse struct {
	Data []leiRecord `json:"data"`
	Meta struct {
		Pagination struct {
			CurrentPage int `json:"currentPage"`
			LastPage    int `json:"lastPage"`
			Total       int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type leiRecord struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		LEI    string   `json:"lei"`
		BIC    []string `json:"bic"`
		Entity struct {
			LegalName struct {
				Name string `json:"name"`
			} `json:"legalName"`
			LegalAddress struct {
				Country string `json:"country"`
			} `json:"legalAddress"`
		} `json:"entity"`
	} `json:"attributes"`
}

func (r leiRecord) toEntity() Entity {
	lei := r.Attributes.LEI
	if lei == "" {
		lei = r.ID
	}
	return Entity{
		LEI:       lei,
		LegalName: r.Attributes.Entity.LegalName.Name,
		BIC:       r.Attributes.BIC,
		Country:   r.Attributes.Entity.LegalAddress.Country,
	}
}

// Index maps identifiers to entities for constant-time joins.
type Index struct {
	byLEI map[string]Entity
}

// NewIndex builds an index from a fetched batch. When the batch holds more
// than one record for an identifier, the first one wins.
func NewIndex(entities []Entity) *Index {
	idx := &Index{byLEI: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if _, exists := idx.byLEI[e.LEI]; exists {
			continue
		}
		idx.byLEI[e.LEI] = e
	}
	return idx
}

// Get returns the entity for lei, if present.
func (i *Index) Get(lei string) (Entity, bool) {
	if i == nil {
		return Entity{}, false
	}
	e, ok := i.byLEI[lei]
	return e, ok
}

// Len returns the number of distinct identifiers in the index.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byLEI)
}
