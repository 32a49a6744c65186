// Package http exposes the budget session as a JSON API.
//
// This file parses request bodies and query strings into domain drafts.
// Bodies may be JSON objects or form-encoded; amounts are accepted as
// numbers or decimal strings with a dot or comma separator.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetfamille/internal/core"
	"budgetfamille/internal/overview"
	"budgetfamille/internal/services"
)

const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned when the body is neither a JSON object nor
// form data.
var ErrMalformedBody = errors.New("malformed request body")

// RequestBodyParser reads the body once and serves fields from either
// encoding.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body. JSON numbers are kept as json.Number so amounts
// never pass through float64.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
	}
	return p.err
}

// Get returns a sanitized string value for key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetBool treats true, on, 1 and yes as true.
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseMonthQuery reads account, year and month from the query string.
// Missing values default to Commun and the month containing today.
func ParseMonthQuery(query url.Values, today core.Date) (overview.Query, error) {
	q := overview.Query{
		Account: core.Commun,
		Year:    today.Year(),
		Month:   today.Month(),
	}

	if v := strings.TrimSpace(query.Get("account")); v != "" {
		a, err := core.ParseAccount(v)
		if err != nil {
			return q, err
		}
		q.Account = a
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return q, fmt.Errorf("%w: year %q", core.ErrInvalidDate, v)
		}
		q.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return q, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		q.Month = time.Month(m)
	}
	return q, nil
}

// hasMonthFilter reports whether any month-view parameter was supplied.
func hasMonthFilter(query url.Values) bool {
	return query.Has("account") || query.Has("year") || query.Has("month")
}

// parseAmount rejects missing, zero and negative amounts.
func parseAmount(p *RequestBodyParser) (core.Money, error) {
	raw := p.Get("amount")
	m, err := core.ParseMoney(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, raw)
	}
	return m, nil
}

// parseTransactionDraft builds a draft from the body; date defaults to today.
func parseTransactionDraft(p *RequestBodyParser, today core.Date) (core.TransactionDraft, error) {
	var d core.TransactionDraft

	d.Date = today
	if v := p.Get("date"); v != "" {
		date, err := core.ParseDate(v)
		if err != nil {
			return d, err
		}
		d.Date = date
	}

	account, err := core.ParseAccount(p.Get("account"))
	if err != nil {
		return d, err
	}
	d.Account = account

	typ, err := core.ParseEntryType(p.Get("type"))
	if err != nil {
		return d, err
	}
	d.Type = typ

	if d.Amount, err = parseAmount(p); err != nil {
		return d, err
	}

	d.Category = p.Get("category")
	d.Description = p.Get("description")
	d.IsVerified = p.GetBool("isVerified")
	return d, nil
}

func parseBudgetDraft(p *RequestBodyParser) (services.BudgetDraft, error) {
	var d services.BudgetDraft
	d.Name = p.Get("name")
	d.IsFixed = p.GetBool("isFixed")

	d.Account = core.Commun
	if v := p.Get("account"); v != "" {
		a, err := core.ParseAccount(v)
		if err != nil {
			return d, err
		}
		d.Account = a
	}

	amount, err := parseAmount(p)
	if err != nil {
		return d, err
	}
	d.Amount = amount
	return d, nil
}

func parseIncomeDraft(p *RequestBodyParser) (services.IncomeDraft, error) {
	var d services.IncomeDraft
	d.Name = p.Get("name")

	account, err := core.ParseAccount(p.Get("account"))
	if err != nil {
		return d, err
	}
	d.Account = account

	amount, err := parseAmount(p)
	if err != nil {
		return d, err
	}
	d.Amount = amount
	return d, nil
}
