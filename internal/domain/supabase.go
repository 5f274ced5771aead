package domain

import (
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	DB() *supabase.Client
	GetClientWithToken(token string) (*supabase.Client, error)
	// RPCClient returns a PostgREST client that runs stored procedures as the token's user.
	RPCClient(token string) *postgrest.Client
}
