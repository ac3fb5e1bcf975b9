package config

import (
	"fmt"
	"os"

	supa "github.com/supabase-community/supabase-go"
)

// NewSupabaseClient builds the Supabase client from environment variables.
// SUPABASE_URL and SUPABASE_SERVICE_KEY are required; all persistent state
// sits behind this client.
func NewSupabaseClient() (*supa.Client, error) {
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing Supabase client: %w", err)
	}
	return client, nil
}
