package core

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/lejeunel/image-db-app/internal/query"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// queryItems joins every item and applies filters within one snapshot.
func (s *Service) queryItems(v TransactionView, filters query.Filters) ([]query.ItemRecord, error) {
	pred, err := s.registry.Compile(filters, v.ListCompoundProperties())
	if err != nil {
		return nil, err
	}
	return query.Apply(query.Build(v), pred), nil
}

// QueryItems returns every item record matching filters, ordered by
// timepoint time, row, col, site and chan.
func (s *Service) QueryItems(ctx context.Context, filters query.Filters) ([]query.ItemRecord, error) {
	var out []query.ItemRecord
	err := s.view(ctx, func(v TransactionView) error {
		var err error
		out, err = s.queryItems(v, filters)
		return err
	})
	return out, err
}

// ListItems returns one page of the item records matching filters. The page
// must be normalized.
func (s *Service) ListItems(ctx context.Context, filters query.Filters, page query.Page) ([]query.ItemRecord, query.PageInfo, error) {
	records, err := s.QueryItems(ctx, filters)
	if err != nil {
		return nil, query.PageInfo{}, err
	}
	out, info := query.Paginate(records, page)
	return out, info, nil
}

// GetItem returns the joined record of one item.
func (s *Service) GetItem(ctx context.Context, id string) (query.ItemRecord, error) {
	var out query.ItemRecord
	err := s.view(ctx, func(v TransactionView) error {
		item, ok := v.FindItem(id)
		if !ok {
			return domain.NewNotFound(EntityItem, id)
		}
		out = query.BuildItems(v, []Item{item})[0]
		return nil
	})
	return out, err
}

// TagItems applies the tag named tagName to every item matching filters and
// returns how many associations were added.
func (s *Service) TagItems(ctx context.Context, tagName string, filters query.Filters) (int, Result, error) {
	return s.retagItems(ctx, "tag_items", tagName, filters, Transaction.TagItem)
}

// UntagItems removes the tag named tagName from every item matching filters
// and returns how many associations were removed.
func (s *Service) UntagItems(ctx context.Context, tagName string, filters query.Filters) (int, Result, error) {
	return s.retagItems(ctx, "untag_items", tagName, filters, Transaction.UntagItem)
}

func (s *Service) retagItems(ctx context.Context, op, tagName string, filters query.Filters, apply func(Transaction, string, string) (bool, error)) (int, Result, error) {
	var n int
	res, err := s.run(ctx, op, func(tx Transaction) error {
		tag, ok := tx.FindTagByName(tagName)
		if !ok {
			return &domain.NotFoundError{Entity: EntityTag, Field: "name", Value: tagName}
		}
		records, err := s.queryItems(tx, filters)
		if err != nil {
			return err
		}
		for _, r := range records {
			changed, err := apply(tx, r.ID, tag.ID)
			if err != nil {
				return err
			}
			if changed {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, res, err
	}
	return n, res, nil
}

// Content is the payload of a stored item.
type Content struct {
	URI         string
	ContentType string
	Data        []byte
}

// ItemContent fetches the bytes of an item through the object reader,
// consulting the content cache first when one is configured.
func (s *Service) ItemContent(ctx context.Context, id string) (Content, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return Content{}, err
	}
	out := Content{URI: item.URI, ContentType: contentType(item.URI)}
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, item.URI)
		if err != nil {
			s.logger.Warn("content cache read failed", "uri", item.URI, "error", err)
		} else if ok {
			out.Data = data
			return out, nil
		}
	}
	if s.reader == nil {
		return Content{}, ErrNoObjectReader
	}
	_, err = s.observe(ctx, "fetch_item_content", func(ctx context.Context) (Result, error) {
		info, rc, err := s.reader.Open(ctx, item.URI)
		if err != nil {
			return Result{}, err
		}
		defer func() { _ = rc.Close() }()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, rc); err != nil {
			return Result{}, &IngestionError{Op: "get", URI: item.URI, Err: fmt.Errorf("read body: %w", err)}
		}
		out.Data = buf.Bytes()
		if info.ContentType != "" {
			out.ContentType = info.ContentType
		}
		return Result{}, nil
	})
	if err != nil {
		return Content{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, item.URI, out.Data); err != nil {
			s.logger.Warn("content cache write failed", "uri", item.URI, "error", err)
		}
	}
	return out, nil
}
