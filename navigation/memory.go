package navigation

import (
	"context"
	"quadnav/models"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// MemoryStore is a MapStore that keeps everything in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	maps      map[string]models.Map
	obstacles map[string][]models.Obstacle
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		maps:      make(map[string]models.Map),
		obstacles: make(map[string][]models.Obstacle),
	}
}

func (s *MemoryStore) CreateMap(ctx context.Context, m models.Map, seed []models.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maps[m.ID]; ok {
		return errors.New("map already exists").
			WithType(models.ErrTypeMapExists).
			WithTag("map_id", m.ID)
	}
	s.maps[m.ID] = m

	if len(seed) > 0 {
		s.appendObstacles(m.ID, seed)
		m.Version++
		s.maps[m.ID] = m
	}
	return nil
}

func (s *MemoryStore) GetMap(ctx context.Context, id string) (models.Map, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maps[id]
	if !ok {
		return models.Map{}, mapNotFound(id)
	}
	return m, nil
}

func (s *MemoryStore) ListObstacles(ctx context.Context, mapID string) ([]models.Obstacle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.maps[mapID]; !ok {
		return nil, mapNotFound(mapID)
	}

	obstacles := s.obstacles[mapID]
	res := make([]models.Obstacle, len(obstacles))
	copy(res, obstacles)
	return res, nil
}

func (s *MemoryStore) AddObstacles(ctx context.Context, mapID string, rects []models.Rect) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.maps[mapID]
	if !ok {
		return 0, mapNotFound(mapID)
	}

	s.appendObstacles(mapID, rects)
	return s.bump(m), nil
}

func (s *MemoryStore) ClearObstacles(ctx context.Context, mapID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.maps[mapID]
	if !ok {
		return 0, mapNotFound(mapID)
	}

	delete(s.obstacles, mapID)
	return s.bump(m), nil
}

func (s *MemoryStore) appendObstacles(mapID string, rects []models.Rect) {
	for _, r := range rects {
		s.nextID++
		s.obstacles[mapID] = append(s.obstacles[mapID], models.Obstacle{
			ID:    s.nextID,
			MapID: mapID,
			Rect:  r,
		})
	}
}

func (s *MemoryStore) bump(m models.Map) int64 {
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	s.maps[m.ID] = m
	return m.Version
}
