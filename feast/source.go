// Package feast 从 Feast Feature Store 在线拉取实体的向量特征，
// 作为本地 .npy 工件之外的另一种向量来源。
package feast

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/embedrec/core"
)

// DefaultPort 是 Feast Feature Server 的默认 gRPC 端口。
const DefaultPort = 6565

// EmbeddingSource 基于官方 Feast Go SDK 的向量特征拉取器。
//
// 约定：每个实体有一个 list 类型的向量特征（double list 或 float list），
// 特征名形如 "product_embeddings:vector"。
type EmbeddingSource struct {
	client  *feastsdk.GrpcClient
	project string
	entity  string
	feature string
}

// NewEmbeddingSource 创建向量特征拉取器。
//
// 参数：
//   - host/port: Feature Server 地址，port 为 0 时使用 DefaultPort
//   - project: Feast 项目名
//   - entity: 实体键名，例如 "product_id"
//   - feature: 特征引用，例如 "product_embeddings:vector"
func NewEmbeddingSource(host string, port int, project, entity, feature string) (*EmbeddingSource, error) {
	if port == 0 {
		port = DefaultPort
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast: connect %s:%d: %w", host, port, err)
	}
	return &EmbeddingSource{
		client:  client,
		project: project,
		entity:  entity,
		feature: feature,
	}, nil
}

// Embeddings 按实体 ID 顺序拉取向量，返回矩阵的行序与 ids 一致。
// 任何实体缺失向量或维度与首行不一致时返回错误。
func (s *EmbeddingSource) Embeddings(ctx context.Context, ids []int64) ([][]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	entities := make([]feastsdk.Row, len(ids))
	for i, id := range ids {
		entities[i] = feastsdk.Row{s.entity: feastsdk.Int64Val(id)}
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: []string{s.feature},
		Entities: entities,
		Project:  s.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast: get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("feast: response has %d rows, want %d", len(rows), len(ids))
	}

	out := make([][]float64, len(ids))
	dim := -1
	for i, row := range rows {
		vec, err := vectorFromValue(row[s.feature])
		if err != nil {
			return nil, fmt.Errorf("feast: entity %d: %w", ids[i], err)
		}
		if dim == -1 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeDimensionMismatch,
				fmt.Sprintf("feast: entity %d vector has dimension %d, want %d", ids[i], len(vec), dim))
		}
		out[i] = vec
	}
	return out, nil
}

// Close 释放客户端连接。
func (s *EmbeddingSource) Close() error {
	s.client = nil
	return nil
}

// vectorFromValue 从 SDK 的 protobuf Value 中提取向量。
// 在线存储可能以 double list 或 float list 存储，两者都接受。
func vectorFromValue(val *feasttypes.Value) ([]float64, error) {
	if val == nil {
		return nil, fmt.Errorf("feature value is missing")
	}
	if list := val.GetDoubleListVal(); list != nil {
		return append([]float64(nil), list.GetVal()...), nil
	}
	if list := val.GetFloatListVal(); list != nil {
		raw := list.GetVal()
		vec := make([]float64, len(raw))
		for i, v := range raw {
			vec[i] = float64(v)
		}
		return vec, nil
	}
	return nil, fmt.Errorf("feature value is not a numeric list (%T)", val.GetVal())
}
