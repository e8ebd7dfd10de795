// Package embedrec 是一个基于向量的打分与离线评估引擎。
//
// 设计要点：
// - 聚合优先: 用户向量由其交互向量按评分加权聚合而来（scaled mean）
// - 分批计算: 用户×商品余弦相似度按行分批，内存占用与批大小成正比
// - 可复现评估: 分组留出 / K 折划分固定种子，指标对齐 precision/recall/NDCG/MAP/MRR
package embedrec

import (
	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/metric"
	"github.com/rushteam/embedrec/pipeline"
)

// 轻量 facade：便于用户直接 import "embedrec" 使用核心抽象。
type Table = core.Table
type Interaction = core.Interaction
type Catalog = core.Catalog
type Matrix = core.Matrix
type IDIndex = core.IDIndex
type Report = metric.Report
type Pipeline = pipeline.Pipeline
type Step = pipeline.Step
