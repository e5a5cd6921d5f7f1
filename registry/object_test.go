package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holdall-io/holdall/errs"
)

type counter struct {
	Hits  int64
	Label string

	loaded bool
}

func (c *counter) ExportState() (map[string]any, error) {
	return map[string]any{"Hits": c.Hits, "Label": c.Label}, nil
}

func (c *counter) ImportState(state map[string]any) error {
	hits, ok := state["Hits"].(int64)
	if !ok {
		return errors.New("missing Hits")
	}
	label, ok := state["Label"].(string)
	if !ok {
		return errors.New("missing Label")
	}

	c.Hits = hits
	c.Label = label
	c.loaded = true

	return nil
}

type plainConfig struct {
	Host    string
	Port    int
	Ratio   float64
	Tags    []string
	Extra   map[string]any
	private int
	Secret  string `holdall:"-"`
}

func TestStateOf_Externalizable(t *testing.T) {
	c := &counter{Hits: 42, Label: "requests"}

	state, err := StateOf(c)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"Hits": int64(42), "Label": "requests"}, state)

	// Value form still reaches the pointer-receiver methods.
	state, err = StateOf(counter{Hits: 7, Label: "v"})
	require.NoError(t, err)
	require.Equal(t, int64(7), state["Hits"])
}

func TestStateOf_ReflectionFallback(t *testing.T) {
	cfg := plainConfig{
		Host:    "db.internal",
		Port:    5432,
		Ratio:   0.75,
		Tags:    []string{"a", "b"},
		private: 9,
		Secret:  "hunter2",
	}

	state, err := StateOf(cfg)
	require.NoError(t, err)
	require.Equal(t, "db.internal", state["Host"])
	require.Equal(t, 5432, state["Port"])
	require.NotContains(t, state, "private", "unexported fields stay out")
	require.NotContains(t, state, "Secret", `fields tagged holdall:"-" stay out`)
}

func TestExportStruct_Errors(t *testing.T) {
	_, err := ExportStruct(42)
	require.ErrorIs(t, err, errs.ErrUnsupportedType)

	var nilPtr *plainConfig
	_, err = ExportStruct(nilPtr)
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func TestRestoreInto_Externalizable(t *testing.T) {
	c := &counter{}
	err := RestoreInto(c, map[string]any{"Hits": int64(10), "Label": "x"})
	require.NoError(t, err)
	require.Equal(t, int64(10), c.Hits)
	require.True(t, c.loaded)
}

func TestImportStruct_CanonicalForms(t *testing.T) {
	// Containers come back from decoding as []any and map[string]any;
	// import converts them to the declared field types.
	state := map[string]any{
		"Host":  "db.internal",
		"Port":  int64(5432),
		"Ratio": 0.75,
		"Tags":  []any{"a", "b"},
		"Extra": map[string]any{"k": int64(1)},
	}

	var cfg plainConfig
	require.NoError(t, ImportStruct(&cfg, state))
	require.Equal(t, "db.internal", cfg.Host)
	require.Equal(t, 5432, cfg.Port)
	require.InDelta(t, 0.75, cfg.Ratio, 1e-12)
	require.Equal(t, []string{"a", "b"}, cfg.Tags)
	require.Equal(t, map[string]any{"k": int64(1)}, cfg.Extra)
	require.Zero(t, cfg.private)
}

func TestImportStruct_MissingFieldsKeepValues(t *testing.T) {
	cfg := plainConfig{Host: "keep-me", Port: 1}
	require.NoError(t, ImportStruct(&cfg, map[string]any{"Port": int64(2)}))
	require.Equal(t, "keep-me", cfg.Host)
	require.Equal(t, 2, cfg.Port)
}

func TestImportStruct_Errors(t *testing.T) {
	var cfg plainConfig

	err := ImportStruct(cfg, nil)
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	err = ImportStruct(&cfg, map[string]any{"Port": "not a number"})
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
	require.Contains(t, err.Error(), "Port")
}

type nested struct {
	Inner   plainConfig
	Pointer *plainConfig
	When    time.Time
	Elapsed time.Duration
	Fixed   [2]int
}

func TestAssignValue_Conversions(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	state := map[string]any{
		"Inner":   map[string]any{"Host": "inner", "Port": int64(1)},
		"Pointer": map[string]any{"Host": "via-pointer"},
		"When":    now,
		"Elapsed": 90 * time.Second,
		"Fixed":   []any{int64(3), int64(4)},
	}

	var n nested
	require.NoError(t, ImportStruct(&n, state))
	require.Equal(t, "inner", n.Inner.Host)
	require.NotNil(t, n.Pointer)
	require.Equal(t, "via-pointer", n.Pointer.Host)
	require.True(t, now.Equal(n.When))
	require.Equal(t, 90*time.Second, n.Elapsed)
	require.Equal(t, [2]int{3, 4}, n.Fixed)
}

func TestAssignValue_Strictness(t *testing.T) {
	type narrow struct {
		Small int8
		Count uint16
		Exact int
	}

	cases := []struct {
		name  string
		state map[string]any
	}{
		{"IntOverflow", map[string]any{"Small": int64(300)}},
		{"NegativeToUnsigned", map[string]any{"Count": int64(-1)}},
		{"FractionalToInt", map[string]any{"Exact": 1.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n narrow
			err := ImportStruct(&n, tc.state)
			require.ErrorIs(t, err, errs.ErrTypeMismatch)
		})
	}

	// Integral floats into integer fields are allowed.
	var n narrow
	require.NoError(t, ImportStruct(&n, map[string]any{"Exact": float64(12)}))
	require.Equal(t, 12, n.Exact)
}

func TestAssignValue_NilClearsField(t *testing.T) {
	cfg := plainConfig{Tags: []string{"stale"}}
	require.NoError(t, ImportStruct(&cfg, map[string]any{"Tags": nil}))
	require.Nil(t, cfg.Tags)
}
