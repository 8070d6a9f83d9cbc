package pimimage

import "context"

// LegacyTables are dropped once the migration has succeeded.
var LegacyTables = []string{"pim_image", "pim_image_channel"}

func (r *run) cleanup(ctx context.Context) error {
	r.m.logg.Info(ctx, "removing pim images")
	return r.m.exec.DropTables(ctx, LegacyTables...)
}
