package main

import "context"

type noopSweeper struct{}

func (noopSweeper) ExpireStale(ctx context.Context, limit int) (int, error)      { return 0, nil }
func (noopSweeper) ReconcilePending(ctx context.Context, limit int) (int, error) { return 0, nil }
