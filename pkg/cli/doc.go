// Package cli holds the terminal plumbing shared by the medstudy commands.
//
// This package includes:
//   - Configuration management (kubectl-style contexts)
//   - Output formatting (JSON, YAML, table)
//   - Record cards and the registry header rendered with lipgloss
//   - Size and duration formatting
//
// Configuration is stored in ~/.medstudy/config.yaml. Each context names a
// durable tier URL and an optional snapshot export target:
//
//	current_context: ward
//	contexts:
//	  ward:
//	    db: badger:///var/lib/medstudy
//	    rehydrate: true
//	    export: s3://imaging-backups/ward
//	    s3_region: eu-west-1
package cli
