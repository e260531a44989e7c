package crudsvc

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crud"
	"github.com/goliatone/go-timebank/pkg/types"
	"github.com/google/uuid"
)

const defaultPageLimit = 50

// queryParams reads list filters off a crud request. The first malformed
// value is kept and reported by Err; later reads return zero values.
type queryParams struct {
	ctx crud.Context
	err error
}

func readQuery(ctx crud.Context) *queryParams {
	return &queryParams{ctx: ctx}
}

func (p *queryParams) raw(key string) string {
	if p.err != nil || p.ctx == nil {
		return ""
	}
	return strings.TrimSpace(p.ctx.Query(key))
}

func (p *queryParams) fail(key, reason string) {
	if p.err == nil {
		p.err = types.FieldValidationError(key, reason)
	}
}

// Err returns the first validation failure, if any.
func (p *queryParams) Err() error {
	return p.err
}

func (p *queryParams) UUID(key string) uuid.UUID {
	raw := p.raw(key)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		p.fail(key, "must be a uuid")
		return uuid.Nil
	}
	return id
}

func (p *queryParams) List(key string) []string {
	raw := p.raw(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *queryParams) Bool(key string) bool {
	raw := p.raw(key)
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, "must be a boolean")
	}
	return value
}

// Time parses RFC3339 timestamps. An absent key yields nil.
func (p *queryParams) Time(key string) *time.Time {
	raw := p.raw(key)
	if raw == "" {
		return nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		p.fail(key, "must be an RFC3339 timestamp")
		return nil
	}
	return &at
}

func (p *queryParams) Int(key string, def int) int {
	raw := p.raw(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, "must be an integer")
		return def
	}
	return value
}

func (p *queryParams) Page() types.Pagination {
	return types.Pagination{
		Limit:  p.Int("limit", defaultPageLimit),
		Offset: p.Int("offset", 0),
	}
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, types.FieldValidationError(field, "must be a uuid")
	}
	return id, nil
}
