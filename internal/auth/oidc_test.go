package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDClaimsIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Identity
	}{
		{
			name: "standard oidc claims",
			raw:  `{"email":"a@example.com","given_name":"Ada","family_name":"Lovelace","picture":"https://img/a.png"}`,
			want: Identity{Subject: "sub", Email: "a@example.com", FirstName: "Ada", LastName: "Lovelace", ProfileImageURL: "https://img/a.png"},
		},
		{
			name: "provider specific names win",
			raw:  `{"first_name":"Grace","given_name":"G","last_name":"Hopper","profile_image_url":"https://img/g.png","picture":"https://img/other.png"}`,
			want: Identity{Subject: "sub", FirstName: "Grace", LastName: "Hopper", ProfileImageURL: "https://img/g.png"},
		},
		{
			name: "nothing but a subject",
			raw:  `{}`,
			want: Identity{Subject: "sub"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c idClaims
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &c))
			require.Equal(t, tt.want, c.identity("sub"))
		})
	}
}

func TestNewStateIsRandom(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Len(t, a, 43)
}
