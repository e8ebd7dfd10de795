// Package config 定义打分引擎的 YAML 配置结构。
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/similarity"
)

// Config 是引擎的完整配置（YAML）。
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Similarity  SimilarityConfig  `yaml:"similarity"`
	Evaluation  EvaluationConfig  `yaml:"evaluation"`
	Serving     ServingConfig     `yaml:"serving"`
	Log         LogConfig         `yaml:"log"`
}

// DataConfig 描述输入文件与工件路径。
type DataConfig struct {
	Interactions          string `yaml:"interactions"`           // 交互表 CSV（逗号分隔）
	Products              string `yaml:"products"`               // 商品目录 CSV
	CatalogDelimiter      string `yaml:"catalog_delimiter"`      // 目录分隔符，默认 ";"
	ProductEmbeddings     string `yaml:"product_embeddings"`     // 商品向量 .npy
	InteractionEmbeddings string `yaml:"interaction_embeddings"` // 交互向量 .npy
	UserEmbeddings        string `yaml:"user_embeddings"`        // 用户向量工件 .npy
	SimilarityMatrix      string `yaml:"similarity_matrix"`      // 相似度矩阵工件 .npy
}

// AggregationConfig 控制用户向量聚合。
type AggregationConfig struct {
	// Renormalize 为 true 时除以评分之和（加权平均），默认保持 scaled-mean。
	Renormalize bool `yaml:"renormalize"`

	// Filter 是可选的 CEL 交互过滤表达式，如 `rating >= 4.0`。
	Filter string `yaml:"filter"`
}

// SimilarityConfig 控制相似度计算。
type SimilarityConfig struct {
	BatchSize int  `yaml:"batch_size"` // 默认 50
	Parallel  bool `yaml:"parallel"`
}

// EvaluationConfig 控制离线评估。
type EvaluationConfig struct {
	K            int     `yaml:"k"`             // 截断深度，默认 5
	Folds        int     `yaml:"folds"`         // 交叉验证折数，默认 5
	TestFraction float64 `yaml:"test_fraction"` // 留出比例，默认 0.2
	Seed         int64   `yaml:"seed"`          // 默认 42
}

// ServingConfig 控制 HTTP 服务与缓存。
type ServingConfig struct {
	Addr  string      `yaml:"addr"`   // 默认 ":8080"
	TopN  int         `yaml:"top_n"`  // 默认 5
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig 为空 Addr 时使用进程内存储。
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// LogConfig 控制日志输出。
type LogConfig struct {
	Env   string `yaml:"env"`   // prod / dev，默认 dev
	Level string `yaml:"level"` // 覆盖默认级别
}

// Default 返回填好默认值的配置。
func Default() *Config {
	return &Config{
		Data: DataConfig{
			CatalogDelimiter: ";",
		},
		Similarity: SimilarityConfig{
			BatchSize: similarity.DefaultBatchSize,
		},
		Evaluation: EvaluationConfig{
			K:            5,
			Folds:        5,
			TestFraction: 0.2,
			Seed:         42,
		},
		Serving: ServingConfig{
			Addr: ":8080",
			TopN: 5,
		},
	}
}

// LoadFromYAML 从 YAML 文件加载配置，未出现的字段保持默认值。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验取值范围。
func (c *Config) Validate() error {
	if c.Evaluation.K < 1 {
		return invalid(fmt.Sprintf("evaluation.k must be >= 1, got %d", c.Evaluation.K))
	}
	if c.Evaluation.Folds < 2 {
		return invalid(fmt.Sprintf("evaluation.folds must be >= 2, got %d", c.Evaluation.Folds))
	}
	if c.Evaluation.TestFraction < 0 || c.Evaluation.TestFraction > 1 {
		return invalid(fmt.Sprintf("evaluation.test_fraction %v out of [0, 1]", c.Evaluation.TestFraction))
	}
	if len(c.Data.CatalogDelimiter) != 1 {
		return invalid(fmt.Sprintf("data.catalog_delimiter must be a single character, got %q", c.Data.CatalogDelimiter))
	}
	return nil
}

// Delimiter 返回目录分隔符。
func (c *Config) Delimiter() rune {
	return rune(c.Data.CatalogDelimiter[0])
}

func invalid(msg string) error {
	return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "config: "+msg)
}
