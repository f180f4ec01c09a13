package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	require.NotPanics(t, RegisterDefault)
	require.NotPanics(t, RegisterDefault)

	CatalogReloads.WithLabelValues("ok").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(CatalogReloads.WithLabelValues("ok")), 1.0)

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["catalog_reloads_total"])
	assert.True(t, names["go_goroutines"])
}
