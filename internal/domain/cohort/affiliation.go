package cohort

import (
	"strings"

	"github.com/nutes/frontdesk/internal/platform/store"
)

// Affiliation is the normalized answer to "is the patient part of the UFPE
// community". Stored records keep whatever the writer sent; this type is only
// applied when reading.
type Affiliation int

const (
	AffiliationUnknown Affiliation = iota
	AffiliationYes
	AffiliationNo
)

func (a Affiliation) String() string {
	switch a {
	case AffiliationYes:
		return "yes"
	case AffiliationNo:
		return "no"
	default:
		return "unknown"
	}
}

// Label is the pt-BR display text.
func (a Affiliation) Label() string {
	switch a {
	case AffiliationYes:
		return "Sim"
	case AffiliationNo:
		return "Não"
	default:
		return "Não informado"
	}
}

var (
	yesTokens = map[string]bool{"SIM": true, "S": true, "TRUE": true, "YES": true, "Y": true, "1": true}
	noTokens  = map[string]bool{"NÃO": true, "NAO": true, "N": true, "FALSE": true, "NO": true, "0": true}
)

// ParseAffiliation maps the representations found in the collection (any
// casing of sim/não, booleans, "true"/"false", 1/0) to an Affiliation.
func ParseAffiliation(v any) Affiliation {
	switch t := v.(type) {
	case bool:
		if t {
			return AffiliationYes
		}
		return AffiliationNo
	case string:
		s := strings.ToUpper(strings.TrimSpace(t))
		switch {
		case yesTokens[s]:
			return AffiliationYes
		case noTokens[s]:
			return AffiliationNo
		}
	default:
		if n, ok := store.AsInt(v); ok {
			switch n {
			case 1:
				return AffiliationYes
			case 0:
				return AffiliationNo
			}
		}
	}
	return AffiliationUnknown
}

// normalizeAffiliation folds the legacy summary rows into yes, no and unknown,
// in that order. Categories without records are omitted.
func normalizeAffiliation(summary []store.Bucket) []store.Bucket {
	counts := make(map[Affiliation]int64, 3)
	for _, b := range summary {
		counts[ParseAffiliation(b.Key)] += b.Count
	}
	out := make([]store.Bucket, 0, 3)
	for _, a := range []Affiliation{AffiliationYes, AffiliationNo, AffiliationUnknown} {
		if counts[a] == 0 {
			continue
		}
		out = append(out, store.Bucket{Key: a.String(), Count: counts[a], Label: a.Label()})
	}
	return out
}
