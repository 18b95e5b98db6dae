package cleanup

// Package cleanup reaps the scratch directory: a periodic TTL sweep scheduled with
// github.com/robfig/cron/v3 and one-shot delayed deletions of delivered files.
