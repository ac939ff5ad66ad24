package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"knowledge-assistant-go/pkg/llm"
	"knowledge-assistant-go/pkg/log"
)

const (
	modelCatalogKey = "models:catalog"
	modelCatalogTTL = 60 * time.Second
)

// ModelService 提供上游模型目录的透传查询。
type ModelService interface {
	ListModels(ctx context.Context) (json.RawMessage, error)
}

type modelService struct {
	llmClient llm.Client
	rdb       *redis.Client
}

// NewModelService 创建一个新的 ModelService。rdb 为 nil 时不启用缓存。
func NewModelService(llmClient llm.Client, rdb *redis.Client) ModelService {
	return &modelService{llmClient: llmClient, rdb: rdb}
}

// ListModels 返回模型目录。启用 Redis 时做短 TTL 缓存，
// 缓存读写失败只记录日志，退化为直接请求上游。
func (s *modelService) ListModels(ctx context.Context) (json.RawMessage, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, modelCatalogKey).Result()
		if err == nil {
			log.Debugf("[Models] Catalog served from cache")
			return json.RawMessage(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[Models] Failed to read catalog cache: %v", err)
		}
	}

	catalog, err := s.llmClient.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, modelCatalogKey, []byte(catalog), modelCatalogTTL).Err(); err != nil {
			log.Warnf("[Models] Failed to write catalog cache: %v", err)
		}
	}
	return catalog, nil
}
