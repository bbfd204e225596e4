package store

import (
	"context"

	"musicscan/internal/scan"
)

// GetSessionDetail loads a session with its images, extractions and result.
func (s *Store) GetSessionDetail(ctx context.Context, id string) (*scan.SessionDetail, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	extractions, err := s.ListExtractions(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	return &scan.SessionDetail{
		Session:     session,
		Images:      images,
		Extractions: extractions,
		Result:      result,
	}, nil
}
