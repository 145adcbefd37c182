package valuation

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appeal-cli/internal/model"
)

// isoMillis matches the millisecond ISO-8601 form used in API responses.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Summary is the API view of a valuation, without raw vendor payloads.
type Summary struct {
	Provider      string     `json:"provider"`
	Amount        *int64     `json:"amount"`
	Currency      *string    `json:"currency"`
	Zpid          *string    `json:"zpid"`
	Confidence    *string    `json:"confidence"`
	ValuationDate *string    `json:"valuationDate"`
	Analytics     *Analytics `json:"analytics"`
}

type rawResponse struct {
	SearchHit      map[string]any `json:"searchHit"`
	PropertyDetail map[string]any `json:"propertyDetail"`
	Analytics      *Analytics     `json:"analytics"`
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(isoMillis)
	return &s
}

// Summary returns the API view of v.
func (v *Valuation) Summary() *Summary {
	currency := v.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Summary{
		Provider:      v.Provider,
		Amount:        v.Amount,
		Currency:      &currency,
		Zpid:          v.Zpid,
		Confidence:    v.Confidence,
		ValuationDate: isoDate(v.ValuationDate),
		Analytics:     v.Analytics,
	}
}

// Record converts v into the persisted form for a document group.
func (v *Valuation) Record(documentGroupID string) (*model.ValuationRecord, error) {
	raw, err := json.Marshal(rawResponse{
		SearchHit:      v.SearchHit,
		PropertyDetail: v.PropertyDetail,
		Analytics:      v.Analytics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "valuation: marshal raw response")
	}
	s := v.Summary()
	return &model.ValuationRecord{
		DocumentGroupID: documentGroupID,
		Provider:        v.Provider,
		ProviderID:      v.Zpid,
		Amount:          v.Amount,
		Currency:        s.Currency,
		Confidence:      v.Confidence,
		ValuationDate:   v.ValuationDate,
		RawResponse:     raw,
	}, nil
}

// SummaryFromRecord rebuilds the API view from a stored valuation. Analytics
// are read back from the raw response; unreadable analytics are dropped.
func SummaryFromRecord(rec *model.ValuationRecord) *Summary {
	if rec == nil {
		return nil
	}
	s := &Summary{
		Provider:      rec.Provider,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Zpid:          rec.ProviderID,
		Confidence:    rec.Confidence,
		ValuationDate: isoDate(rec.ValuationDate),
	}
	if len(rec.RawResponse) > 0 {
		var raw rawResponse
		if err := json.Unmarshal(rec.RawResponse, &raw); err == nil {
			s.Analytics = raw.Analytics
		}
	}
	return s
}
