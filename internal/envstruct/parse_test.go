package envstruct_test

import (
	"strings"
	"testing"
	"time"

	"github.com/myrjola/saferroad/internal/envstruct"
	"github.com/stretchr/testify/require"
)

func unset(_ string) (string, bool) { return "", false }

func TestPopulate(t *testing.T) {
	type args struct {
		v         any
		lookupEnv func(string) (string, bool)
	}
	tests := []struct {
		name    string
		args    args
		want    any
		wantErr error
	}{
		{
			name:    "nil",
			args:    args{v: nil, lookupEnv: unset},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			args:    args{v: struct{}{}, lookupEnv: unset},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "missing env without default",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Addr string `env:"SAFERROAD_ADDR"`
				}{},
				lookupEnv: unset,
			},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "picks correct env variables",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Addr        string `env:"SAFERROAD_ADDR"`
					DatasetPath string `env:"SAFERROAD_DATASET_PATH"`
					Untagged    string
				}{},
				lookupEnv: func(s string) (string, bool) { return strings.ToLower(s), true },
			},
			want: &struct {
				Addr        string
				DatasetPath string
				Untagged    string
			}{Addr: "saferroad_addr", DatasetPath: "saferroad_dataset_path", Untagged: ""},
		},
		{
			name: "handles defaults for every supported type",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					SQLiteURL       string        `env:"SAFERROAD_SQLITE_URL" envDefault:":memory:"`
					SecureCookies   bool          `env:"SAFERROAD_SECURE_COOKIES" envDefault:"true"`
					MaxReadConns    int           `env:"SAFERROAD_MAX_READ_CONNS" envDefault:"10"`
					SessionLifetime time.Duration `env:"SAFERROAD_SESSION_LIFETIME" envDefault:"12h"`
				}{},
				lookupEnv: unset,
			},
			want: &struct {
				SQLiteURL       string
				SecureCookies   bool
				MaxReadConns    int
				SessionLifetime time.Duration
			}{SQLiteURL: ":memory:", SecureCookies: true, MaxReadConns: 10, SessionLifetime: 12 * time.Hour},
		},
		{
			name: "env overrides default",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					SecureCookies bool `env:"SAFERROAD_SECURE_COOKIES" envDefault:"true"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "false", true },
			},
			want: &struct{ SecureCookies bool }{SecureCookies: false},
		},
		{
			name: "invalid duration",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					SessionLifetime time.Duration `env:"SAFERROAD_SESSION_LIFETIME"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "forever", true },
			},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "invalid bool",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					SecureCookies bool `env:"SAFERROAD_SECURE_COOKIES"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "maybe", true },
			},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "unsupported type",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Ratio float64 `env:"SAFERROAD_RATIO" envDefault:"0.5"`
				}{},
				lookupEnv: unset,
			},
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.args.v
			err := envstruct.Populate(v, tt.args.lookupEnv)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.EqualValues(t, tt.want, v)
		})
	}
}
