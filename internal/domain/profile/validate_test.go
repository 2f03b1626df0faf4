package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	valid := []string{"alice", "alice-2", "team_a.main", "A1"}
	for _, id := range valid {
		assert.NoError(t, ValidateID(id), id)
	}

	invalid := []string{"", "with space", "../etc", "a/b", "..", strings.Repeat("x", MaxIDLength+1)}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateID(id), ErrInvalid, id)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{name: "no proxy", profile: Profile{ID: "a", Name: "A"}},
		{name: "proxy with auth", profile: Profile{ID: "a", Proxy: &Proxy{Host: "10.0.0.1", Port: 8080, Username: "u", Password: "p"}}},
		{name: "bad id", profile: Profile{ID: "a b"}, wantErr: true},
		{name: "long name", profile: Profile{ID: "a", Name: strings.Repeat("n", MaxNameLength+1)}, wantErr: true},
		{name: "missing host", profile: Profile{ID: "a", Proxy: &Proxy{Port: 8080}}, wantErr: true},
		{name: "port zero", profile: Profile{ID: "a", Proxy: &Proxy{Host: "h"}}, wantErr: true},
		{name: "port too large", profile: Profile{ID: "a", Proxy: &Proxy{Host: "h", Port: 70000}}, wantErr: true},
		{name: "host with path", profile: Profile{ID: "a", Proxy: &Proxy{Host: "h/x", Port: 1}}, wantErr: true},
		{name: "password only", profile: Profile{ID: "a", Proxy: &Proxy{Host: "h", Port: 1, Password: "p"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}
