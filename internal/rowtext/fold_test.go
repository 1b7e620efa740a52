package rowtext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/channel-memory/internal/model"
)

func TestFoldIsUnicodeAware(t *testing.T) {
	assert.Equal(t, "über école straße", Fold("ÜBER École STRAßE"))
}

func TestSearchText(t *testing.T) {
	rec := record(`{"role":"user","content":"Über alles"}`)
	assert.Equal(t, "über alles", SearchText(rec))

	rec.DerivedText = "ÉCOLE"
	assert.Equal(t, "über alles école", SearchText(rec))

	rec = model.Record{Payload: []byte(`{}`), DerivedText: "Only \n\t  Derived"}
	assert.Equal(t, "only derived", SearchText(rec))
}
