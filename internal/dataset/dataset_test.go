package dataset_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/saferroad/internal/dataset"
	"github.com/myrjola/saferroad/internal/models"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	table, err := dataset.Load(filepath.Join("testdata", "roads.csv"))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	first := table.Record(0)
	require.InDelta(t, 0.06, first.Curvature, 1e-9)
	require.InDelta(t, 0.7, first.SpeedLimit, 1e-9)
	require.InDelta(t, 0.132, first.Risk, 1e-9)
	require.True(t, first.Flag("road_type_highway"))
	require.True(t, first.Flag("time_of_day_morning"))
	require.False(t, first.Flag("road_type_rural"))
	require.False(t, first.Flag("no_such_column"))

	require.True(t, table.Contains(2))
	require.False(t, table.Contains(3))
	require.False(t, table.Contains(-1))
}

func TestLoad_missingFile(t *testing.T) {
	_, err := dataset.Load(filepath.Join("testdata", "does-not-exist.csv"))
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		wantErr   error
		wantLen   int
		wantFlags map[string]bool
	}{
		{
			name:    "empty input",
			csv:     "",
			wantErr: dataset.ErrEmpty,
		},
		{
			name:    "header only",
			csv:     "curvature,speed_limit,predicted_accident_risk\n",
			wantErr: dataset.ErrEmpty,
		},
		{
			name:    "missing risk column",
			csv:     "curvature,speed_limit\n0.1,0.5\n",
			wantErr: dataset.ErrMissingColumn,
		},
		{
			name:    "malformed number",
			csv:     "curvature,speed_limit,predicted_accident_risk\nsharp,0.5,0.1\n",
			wantErr: dataset.ErrInvalidValue,
		},
		{
			name:    "NaN risk",
			csv:     "curvature,speed_limit,predicted_accident_risk\n0.1,0.5,NaN\n",
			wantErr: dataset.ErrInvalidValue,
		},
		{
			name:      "one-hot columns are optional",
			csv:       "curvature,speed_limit,predicted_accident_risk\n0.1,0.5,0.2\n",
			wantLen:   1,
			wantFlags: map[string]bool{},
		},
		{
			name: "flag spellings",
			csv: "\ufeffweather_clear, weather_rainy,lighting_dim,lighting_night,road_type_urban," +
				"curvature,speed_limit,predicted_accident_risk\n" +
				"True,1.0,0,false,,0.1,0.5,0.2\n",
			wantLen:   1,
			wantFlags: map[string]bool{"weather_clear": true, "weather_rainy": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := dataset.Parse(strings.NewReader(tt.csv))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, table)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantLen, table.Len())
			require.Equal(t, tt.wantFlags, table.Record(0).Flags)
		})
	}
}

func TestTable_RecordsIsACopy(t *testing.T) {
	table, err := dataset.NewTable([]models.RoadRecord{{Curvature: 0.1, Risk: 0.2}})
	require.NoError(t, err)

	records := table.Records()
	records[0].Risk = 1
	require.InDelta(t, 0.2, table.Record(0).Risk, 1e-9)

	_, err = dataset.NewTable(nil)
	require.ErrorIs(t, err, dataset.ErrEmpty)
}
