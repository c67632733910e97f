package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPriceTable(t *testing.T) {
	out, _, err := run(t, "", "price", "--type", "put", "--spot", "100", "--strike", "100",
		"--days", "365.25", "--rate", "5", "--vol", "20", "--ratio", "0.1")
	require.NoError(t, err)
	assert.Contains(t, out, "warrant price")
	assert.Contains(t, out, "0.5574")
	assert.Contains(t, out, "94.4265")
}

func TestPriceJSON(t *testing.T) {
	out, _, err := run(t, "", "price", "--json", "--type", "call", "--spot", "42", "--strike", "40",
		"--days", "182.625", "--rate", "10", "--vol", "20")
	require.NoError(t, err)

	var q struct {
		Option struct {
			Price float64 `json:"price"`
		} `json:"option"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.InDelta(t, 4.7594, q.Option.Price, 1e-3)
}

func TestPriceMissingFlag(t *testing.T) {
	_, _, err := run(t, "", "price", "--spot", "100", "--strike", "100")
	assert.ErrorContains(t, err, "vol")
}

func TestIV(t *testing.T) {
	out, _, err := run(t, "", "iv", "--json", "--type", "call", "--spot", "100", "--strike", "100",
		"--days", "365.25", "--rate", "5", "--price", "1.04506", "--ratio", "0.1")
	require.NoError(t, err)

	var res struct {
		Vol float64 `json:"vol"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 20, res.Vol, 0.01)
}

func TestIVNotFound(t *testing.T) {
	_, _, err := run(t, "", "iv", "--type", "call", "--spot", "100", "--strike", "100",
		"--days", "365.25", "--price", "150")
	assert.ErrorContains(t, err, "implied volatility not found")
}

func TestSkewAndSmile(t *testing.T) {
	out, _, err := run(t, "", "skew", "--type", "put", "--spot", "100", "--strike", "85", "--days", "30", "--atm-vol", "22")
	require.NoError(t, err)
	assert.Contains(t, out, "adjusted vol %")

	out, _, err = run(t, "", "smile", "--type", "put", "--spot", "100", "--strikes", "80,90,100,110", "--days", "60", "--atm-vol", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "80.00")
	assert.Contains(t, out, "110.00")
}

func TestConfigCalibration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\nskew:\n  put_skew_intensity: 0\n  smile_curvature: 0\n"), 0o644))

	out, _, err := run(t, "", "--config", path, "--json", "skew", "--type", "put", "--spot", "100", "--strike", "85", "--days", "30", "--atm-vol", "22")
	require.NoError(t, err)
	var res struct {
		Vol float64 `json:"vol"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 22, res.Vol, 1e-12)
}

func TestBatchStdinStdout(t *testing.T) {
	csv := "type,spot,strike,days,expiry,rate,dividend,ratio,vol,skew,market_price\n" +
		"call,100,100,365.25,,5,0,0.1,20,false,0\n" +
		"call,100,100,365.25,,5,0,0.1,0,false,1.04506\n"

	out, summary, err := run(t, csv, "batch")
	require.NoError(t, err)
	assert.Contains(t, out, "warrant_price")
	assert.GreaterOrEqual(t, strings.Count(out, "1.0451"), 2)
	assert.Contains(t, summary, "Rows")
}

func TestBatchPublishNeedsKafka(t *testing.T) {
	csv := "type,spot,strike,days,expiry,rate,dividend,ratio,vol,skew,market_price\n" +
		"call,100,100,365.25,,5,0,1,20,false,0\n"
	_, _, err := run(t, csv, "batch", "--publish")
	assert.ErrorContains(t, err, "kafka.enabled")
}
