package connect

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// InitSupabase builds the PostgREST client for the events store.
func InitSupabase(url, key string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %v", err)
	}
	return client, nil
}
