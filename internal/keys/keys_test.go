package keys

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvadminer/kvadminer/internal/kverr"
	"github.com/kvadminer/kvadminer/internal/value"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestPattern(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"", "*"},
		{"user", "*user*"},
		{"a*b", `*a\*b*`},
		{"what?", `*what\?*`},
		{"[x]", `*\[x\]*`},
		{`back\slash`, `*back\\slash*`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pattern(tt.search), "Pattern(%q)", tt.search)
	}
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Page: 0, PageSize: 10}.Validate())

	err := Query{Page: 0, PageSize: 0}.Validate()
	require.Error(t, err)
	assert.Equal(t, kverr.KindInvalid, kverr.KindOf(err))

	assert.Error(t, Query{Page: -1, PageSize: 10}.Validate())
	assert.NoError(t, Query{Page: 0, PageSize: MaxPageSize}.Validate())

	err = Query{Page: 0, PageSize: MaxPageSize + 1}.Validate()
	require.Error(t, err)
	assert.Equal(t, kverr.KindInvalid, kverr.KindOf(err))
}

func TestList_HugePageSizeRejected(t *testing.T) {
	rdb, mr := newTestClient(t)
	for _, k := range []string{"k1", "k2", "k3"} {
		require.NoError(t, mr.Set(k, "v"))
	}

	_, err := NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: math.MaxInt})
	require.Error(t, err)
	assert.Equal(t, kverr.KindInvalid, kverr.KindOf(err))
}

func TestList_LargestPageSizeHoldsEverything(t *testing.T) {
	rdb, mr := newTestClient(t)
	for _, k := range []string{"k1", "k2", "k3"} {
		require.NoError(t, mr.Set(k, "v"))
	}

	page, err := NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalKeys)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Keys, 3)
}

func TestList_PagesOverThreeKeys(t *testing.T) {
	rdb, mr := newTestClient(t)
	ctx := context.Background()
	for _, k := range []string{"k1", "k2", "k3"} {
		require.NoError(t, mr.Set(k, "v-"+k))
	}

	l := NewLister(0)

	first, err := l.List(ctx, rdb, Query{Page: 0, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalKeys)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 0, first.CurrentPage)
	require.Len(t, first.Keys, 2)

	second, err := l.List(ctx, rdb, Query{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, second.TotalKeys)
	assert.Equal(t, 2, second.TotalPages)
	require.Len(t, second.Keys, 1)

	seen := map[string]bool{}
	for _, e := range append(first.Keys, second.Keys...) {
		assert.False(t, seen[e.Key], "duplicate key %s", e.Key)
		seen[e.Key] = true
		assert.Equal(t, value.Scalar, e.Type)
		assert.Equal(t, "v-"+e.Key, e.Value)
	}
	assert.Len(t, seen, 3)
}

func TestList_PagePastEnd(t *testing.T) {
	rdb, mr := newTestClient(t)
	require.NoError(t, mr.Set("only", "v"))

	page, err := NewLister(0).List(context.Background(), rdb, Query{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Keys)
	assert.NotNil(t, page.Keys)
	assert.Equal(t, 1, page.TotalKeys)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 5, page.CurrentPage)
}

func TestList_EmptyStore(t *testing.T) {
	rdb, _ := newTestClient(t)

	page, err := NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Keys)
	assert.Equal(t, 0, page.TotalKeys)
	assert.Equal(t, 0, page.TotalPages)
}

func TestList_SearchIsSubstring(t *testing.T) {
	rdb, mr := newTestClient(t)
	for _, k := range []string{"user:1", "user:2", "session:9", "superuser"} {
		require.NoError(t, mr.Set(k, "x"))
	}

	page, err := NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: 10, Search: "user"})
	require.NoError(t, err)

	var got []string
	for _, e := range page.Keys {
		got = append(got, e.Key)
	}
	assert.Equal(t, []string{"superuser", "user:1", "user:2"}, got)
	assert.Equal(t, 3, page.TotalKeys)
}

func TestList_MixedTypes(t *testing.T) {
	rdb, mr := newTestClient(t)
	require.NoError(t, mr.Set("a", "plain"))
	_, err := mr.Push("b", "x", "y")
	require.NoError(t, err)
	mr.HSet("c", "f", "v")

	page, err := NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Keys, 3)

	assert.Equal(t, value.Entry{Key: "a", Type: value.Scalar, Value: "plain"}, page.Keys[0])
	assert.Equal(t, value.Entry{Key: "b", Type: value.List, Value: "x, y"}, page.Keys[1])
	assert.Equal(t, value.Entry{Key: "c", Type: value.FieldMap, Value: "f: v"}, page.Keys[2])
}

func TestCollect_SmallCountStillCoversKeyspace(t *testing.T) {
	rdb, mr := newTestClient(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("key:%02d", i), "v"))
	}

	all, err := NewLister(3).Collect(context.Background(), rdb, "*")
	require.NoError(t, err)
	assert.Len(t, all, 25)
	assert.Equal(t, "key:00", all[0])
	assert.Equal(t, "key:24", all[24])
}

// typeFailing fails every TYPE command and passes other commands through.
type typeFailing struct {
	*redis.Client
}

func (f typeFailing) Type(ctx context.Context, key string) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "type", key)
	cmd.SetErr(errors.New("type lookup failed"))
	return cmd
}

func TestList_UnreadableKeyIsUnknown(t *testing.T) {
	rdb, mr := newTestClient(t)
	require.NoError(t, mr.Set("k1", "v"))

	page, err := NewLister(0).List(context.Background(), typeFailing{rdb}, Query{Page: 0, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Keys, 1)
	assert.Equal(t, value.Entry{Key: "k1", Type: value.Unknown}, page.Keys[0])
}

func TestList_CancelledContextAborts(t *testing.T) {
	rdb, mr := newTestClient(t)
	require.NoError(t, mr.Set("k1", "v"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLister(0).List(ctx, rdb, Query{Page: 0, PageSize: 10})
	assert.Error(t, err)
}

func TestScan_StoreFailure(t *testing.T) {
	rdb, _ := newTestClient(t)
	require.NoError(t, rdb.Close())

	_, _, err := Scan(context.Background(), rdb, "*", 0, 10)
	require.Error(t, err)
	assert.Equal(t, kverr.KindStore, kverr.KindOf(err))

	_, err = NewLister(0).List(context.Background(), rdb, Query{Page: 0, PageSize: 10})
	assert.Equal(t, kverr.KindStore, kverr.KindOf(err))
}
