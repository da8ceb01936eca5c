package modelo347

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/modelo347/internal/modelo347/fixedwidth"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCountryCacheResolvesAndCaches(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := newMemoryRepo()
	repo.countries["ESP"] = "es"
	repo.countries["PRT"] = "PT"

	cache := NewCountryCache(client, time.Hour, repo, nil)
	ctx := context.Background()

	table, err := cache.Resolve(ctx, []string{"esp", "PRT", "PRT", "", "XXX"})
	require.NoError(t, err)
	require.Equal(t, 1, repo.countryCalls)
	iso, ok := table.ISOCode("ESP")
	require.True(t, ok)
	require.Equal(t, "ES", iso)
	_, ok = table.ISOCode("XXX")
	require.False(t, ok)
	require.True(t, mr.Exists("modelo347:country:1:PRT"))
	require.True(t, mr.Exists("modelo347:country:1:XXX"), "unknown codes are cached")

	table, err = cache.Resolve(ctx, []string{"PRT", "XXX"})
	require.NoError(t, err)
	require.Equal(t, 1, repo.countryCalls, "second call served from redis")
	iso, _ = table.ISOCode("prt")
	require.Equal(t, "PT", iso)
}

func TestCountryCacheBumpInvalidates(t *testing.T) {
	_, client := newTestRedis(t)
	repo := newMemoryRepo()
	repo.countries["PRT"] = "PT"

	cache := NewCountryCache(client, time.Hour, repo, nil)
	ctx := context.Background()

	_, err := cache.Resolve(ctx, []string{"PRT"})
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))

	repo.countries["PRT"] = "PO"
	table, err := cache.Resolve(ctx, []string{"PRT"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.countryCalls)
	iso, _ := table.ISOCode("PRT")
	require.Equal(t, "PO", iso)
}

func TestCountryCacheWithoutRedis(t *testing.T) {
	repo := newMemoryRepo()
	repo.countries["FRA"] = "FR"
	cache := NewCountryCache(nil, 0, repo, nil)

	table, err := cache.Resolve(context.Background(), []string{"fra"})
	require.NoError(t, err)
	iso, ok := table.ISOCode("FRA")
	require.True(t, ok)
	require.Equal(t, "FR", iso)

	table, err = cache.Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, table)
}

func TestCountryCacheFallsBackWhenRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := newMemoryRepo()
	repo.countries["PRT"] = "PT"
	cache := NewCountryCache(client, time.Hour, repo, nil)
	mr.Close()

	table, err := cache.Resolve(context.Background(), []string{"PRT"})
	require.NoError(t, err)
	iso, ok := table.ISOCode("PRT")
	require.True(t, ok)
	require.Equal(t, "PT", iso)
	require.Equal(t, 1, repo.countryCalls)
}

func TestWriteTextSurvivesRedisOutage(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := scenarioRepo()
	repo.parties[SideCustomers]["C1"] = PartyInfo{Code: "C1", TaxID: "12345678Z", TaxIDType: "passport", Name: "Cliente Uno", Province: "Lisboa", CountryCode: "PRT"}
	repo.countries["PRT"] = "PT"
	svc := NewService(repo, NewCountryCache(client, time.Hour, repo, nil), Options{})

	report, err := svc.Build(context.Background(), testContext(ExamineInvoices, GroupByParty))
	require.NoError(t, err)
	mr.Close()

	var buf bytes.Buffer
	require.NoError(t, svc.WriteText(context.Background(), &buf, report))
	detail, err := fixedwidth.DetailLayout.Slice(strings.Split(buf.String(), "\n")[1])
	require.NoError(t, err)
	require.Equal(t, "PT", detail["country"])
}

type ctxCheckingLookup struct{}

func (ctxCheckingLookup) CountryISOCodes(ctx context.Context, codes []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]string{"FRA": "FR"}, nil
}

func TestCountryLookupIgnoresCallerCancellation(t *testing.T) {
	cache := NewCountryCache(nil, 0, ctxCheckingLookup{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := cache.Resolve(ctx, []string{"FRA"})
	require.NoError(t, err)
	iso, _ := table.ISOCode("FRA")
	require.Equal(t, "FR", iso)
}
