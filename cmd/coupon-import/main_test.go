package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-pricing/internal/domain/coupon"
	"github.com/xenking/storefront-pricing/internal/repository"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		check   func(t *testing.T, c coupon.Coupon)
		wantErr string
	}{
		{
			name: "full record",
			line: `{"code":" spring20 ","type":"percentage","value":20,"description":"Spring","usageLimit":100,` +
				`"timesUsed":3,"validFrom":"2025-03-01T00:00:00Z","validTo":"2025-06-01T00:00:00Z","extra":[1]}`,
			check: func(t *testing.T, c coupon.Coupon) {
				assert.Equal(t, "SPRING20", c.Code)
				assert.Equal(t, coupon.TypePercentage, c.Type)
				assert.True(t, decimal.NewFromInt(20).Equal(c.Value))
				assert.Equal(t, coupon.StatusActive, c.Status)
				require.NotNil(t, c.UsageLimit)
				assert.Equal(t, 100, *c.UsageLimit)
				assert.Equal(t, 3, c.TimesUsed)
				require.NotNil(t, c.ValidFrom)
				require.NotNil(t, c.ValidTo)
			},
		},
		{
			name: "nulls are absent",
			line: `{"code":"FLAT5","type":"fixed","value":5.99,"usageLimit":null,"validTo":null,"status":"inactive"}`,
			check: func(t *testing.T, c coupon.Coupon) {
				assert.Nil(t, c.UsageLimit)
				assert.Nil(t, c.ValidTo)
				assert.Equal(t, coupon.StatusInactive, c.Status)
				assert.Equal(t, "5.99", c.Value.String())
			},
		},
		{name: "missing code", line: `{"type":"fixed","value":1}`, wantErr: "code is required"},
		{name: "unknown type", line: `{"code":"X","type":"bogo","value":1}`, wantErr: "unknown type"},
		{name: "percentage over 100", line: `{"code":"X","type":"percentage","value":150}`, wantErr: "exceeds 100"},
		{name: "negative value", line: `{"code":"X","type":"fixed","value":-1}`, wantErr: "negative value"},
		{name: "unknown status", line: `{"code":"X","type":"fixed","value":1,"status":"paused"}`, wantErr: "unknown status"},
		{
			name:    "inverted window",
			line:    `{"code":"X","type":"fixed","value":1,"validFrom":"2025-06-01T00:00:00Z","validTo":"2025-03-01T00:00:00Z"}`,
			wantErr: "validTo before validFrom",
		},
		{name: "bad time", line: `{"code":"X","type":"fixed","value":1,"validFrom":"yesterday"}`, wantErr: "decode"},
		{name: "not json", line: `code=X`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseRecord([]byte(tt.line))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

type memStore struct {
	mu      sync.Mutex
	coupons map[string]coupon.Coupon
	upserts int
}

func (m *memStore) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) ListCodes(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.coupons))
	for code := range m.coupons {
		codes = append(codes, code)
	}
	return codes, nil
}

func (m *memStore) Upsert(_ context.Context, c coupon.Coupon) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.Code] = c
	m.upserts++
	return int64(len(m.coupons)), nil
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestImportFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.jsonl.gz",
			`{"code":"NEW1","type":"fixed","value":1}`,
			`{"code":"DUP","type":"fixed","value":2}`,
			`not json`,
			``,
		),
		writeGz(t, dir, "b.jsonl.gz",
			`{"code":"dup","type":"fixed","value":3}`,
			`{"code":"WELCOME10","type":"percentage","value":15}`,
		),
	}

	tests := []struct {
		name      string
		overwrite bool
		want      importStats
	}{
		{name: "skip existing", overwrite: false, want: importStats{inserted: 2, skipped: 2}},
		{name: "overwrite existing", overwrite: true, want: importStats{inserted: 2, updated: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{coupons: map[string]coupon.Coupon{
				"WELCOME10": {Code: "WELCOME10", Type: coupon.TypePercentage, Value: decimal.NewFromInt(10)},
			}}
			filter, err := repository.NewCouponFilter(context.Background(), store, 100, 0.0001)
			require.NoError(t, err)

			stats, err := importFiles(context.Background(), files, store, filter, tt.overwrite)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats)

			assert.Contains(t, store.coupons, "NEW1")
			assert.Contains(t, store.coupons, "DUP")
			if tt.overwrite {
				assert.True(t, decimal.NewFromInt(15).Equal(store.coupons["WELCOME10"].Value))
			} else {
				assert.True(t, decimal.NewFromInt(10).Equal(store.coupons["WELCOME10"].Value))
			}
		})
	}
}

func TestImportFiles_MissingFile(t *testing.T) {
	store := &memStore{coupons: map[string]coupon.Coupon{}}
	filter, err := repository.NewCouponFilter(context.Background(), store, 10, 0.01)
	require.NoError(t, err)

	_, err = importFiles(context.Background(), []string{filepath.Join(t.TempDir(), "missing.gz")}, store, filter, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
