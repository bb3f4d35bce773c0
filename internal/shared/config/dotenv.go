package config

import "github.com/joho/godotenv"

// loadEnvFiles loads KEY=VALUE files for local development. Missing files are skipped and
// variables already present in the environment are left untouched.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}
