package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

func renderFixture() *ExportResult {
	channels, _ := models.LookupChannels(models.SourceArchive, []string{"outTemp", "windSpeed"})
	return &ExportResult{
		Source:   models.SourceArchive,
		Channels: channels,
		Rows: []models.Sample{
			{Timestamp: 1700000000, Values: []*float64{f64(4.5), nil}},
			{Timestamp: 1700000300, Values: []*float64{f64(4.75), f64(1.2)}},
		},
		HiLo: []ChannelHiLo{
			{Channel: "outTemp", Series: []models.HiLoStat{
				{DateTime: 1699920000, Min: f64(-1), MinTime: i64(1699930800), Max: f64(9), MaxTime: i64(1699970400)},
			}},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	out, err := RenderCSV(renderFixture())
	require.NoError(t, err)

	want := "Date,Time,Temperature [°C],Wind Speed [m/s]\n" +
		"2023-11-14,22:13:20,4.5,\n" +
		"2023-11-14,22:18:20,4.75,1.2\n"
	assert.Equal(t, want, string(out))
}

func TestRenderXLSX(t *testing.T) {
	out, err := RenderXLSX(renderFixture())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Export", "HiLo outTemp"}, f.GetSheetList())

	header, err := f.GetCellValue("Export", "C1")
	require.NoError(t, err)
	assert.Equal(t, "Temperature [°C]", header)

	v, err := f.GetCellValue("Export", "C3")
	require.NoError(t, err)
	assert.Equal(t, "4.75", v)

	empty, err := f.GetCellValue("Export", "D2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	maxTime, err := f.GetCellValue("HiLo outTemp", "E2")
	require.NoError(t, err)
	assert.Equal(t, "14:00:00", maxTime)
}
