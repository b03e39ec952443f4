package payment

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderQRDeterministic(t *testing.T) {
	first, err := RenderQR("bitcoin:bc1qexample?amount=0.01")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := RenderQR("bitcoin:bc1qexample?amount=0.01")
	require.NoError(t, err)
	require.True(t, bytes.Equal(first, second), "same URI must render byte-identical PNGs")
}

func TestRenderQRIsPNG(t *testing.T) {
	png, err := RenderQR("lightning:lnbc1example")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}

func TestRenderQREmptyInput(t *testing.T) {
	_, err := RenderQR("")
	require.Error(t, err)
}
