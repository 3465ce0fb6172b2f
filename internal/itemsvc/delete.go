package itemsvc

import "context"

// DeleteItem removes an item; the storage adapter's cascading foreign
// keys take care of its joins and both directions of every relation.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	if s.mirror != nil {
		s.mirror.RemoveItem(item)
	}
	return nil
}

// AddRelations ensures symmetric ItemRelation rows exist between
// sourceID and each target in targetIDs that exists; unknown targets
// are skipped silently and the call is idempotent.
func (s *Service) AddRelations(ctx context.Context, sourceID int64, targetIDs []int64) error {
	return s.store.AddRelations(ctx, sourceID, targetIDs)
}
