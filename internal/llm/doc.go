// Package llm provides the AI categorization client. Providers are plain
// configuration (dialect, endpoint, credentials, model) behind one Client type
// that adds credential rotation, bounded timeouts, a single proxy-to-direct
// retry, response caching and permissive parsing of category replies.
package llm
