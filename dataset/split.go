// Package dataset 负责交互表的装载与拆分：
// 按用户分组的留出拆分、K 折划分，固定种子保证可复现。
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rushteam/embedrec/core"
)

// Split 是留出拆分的结果：Train 与 Test 互不相交，并集恰为输入。
type Split struct {
	Train *core.Table
	Test  *core.Table
}

// GroupedHoldout 按用户分组做留出拆分。
//
// 对每个用户抽样 round(frac·n) 行进入测试集，其余进入训练集。
// 要求 user_id 列存在（否则 SCHEMA_ERROR）；同一种子下结果完全一致。
// 两侧都保持输入表的行序。
func GroupedHoldout(table *core.Table, frac float64, seed int64) (*Split, error) {
	if err := table.RequireColumns(core.ColumnUserID); err != nil {
		return nil, err
	}
	if frac < 0 || frac > 1 || math.IsNaN(frac) {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: test fraction %v out of [0, 1]", frac))
	}

	// 表内位置按用户归组；组遍历按用户 ID 升序，抽样顺序与输入行序无关
	positionsByUser := make(map[int64][]int)
	for pos, row := range table.Rows {
		positionsByUser[row.UserID] = append(positionsByUser[row.UserID], pos)
	}
	userIDs := make([]int64, 0, len(positionsByUser))
	for id := range positionsByUser {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	rng := rand.New(rand.NewSource(seed))
	inTest := make([]bool, table.Len())
	for _, id := range userIDs {
		positions := positionsByUser[id]
		take := int(math.Round(frac * float64(len(positions))))
		perm := rng.Perm(len(positions))
		for _, p := range perm[:take] {
			inTest[positions[p]] = true
		}
	}

	var trainPos, testPos []int
	for pos := range table.Rows {
		if inTest[pos] {
			testPos = append(testPos, pos)
		} else {
			trainPos = append(trainPos, pos)
		}
	}

	train, err := table.Select(trainPos)
	if err != nil {
		return nil, err
	}
	test, err := table.Select(testPos)
	if err != nil {
		return nil, err
	}
	return &Split{Train: train, Test: test}, nil
}

// Fold 是一折划分：Test 为该折的测试行位置，Train 为其余行位置。
// 两者都按升序排列。
type Fold struct {
	Train []int
	Test  []int
}

// KFold 把 n 行打乱后划分为 k 折。
//
// 每行恰好出现在一个测试折中，折大小相差不超过 1；
// 同一 (seed, k) 重跑得到完全相同的划分。
func KFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: k-fold requires k >= 2, got %d", k))
	}
	if n < k {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: cannot split %d rows into %d folds", n, k))
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	base := n / k
	rem := n % k
	folds := make([]Fold, 0, k)
	offset := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		test := append([]int(nil), perm[offset:offset+size]...)
		sort.Ints(test)

		inTest := make(map[int]struct{}, size)
		for _, p := range test {
			inTest[p] = struct{}{}
		}
		train := make([]int, 0, n-size)
		for p := 0; p < n; p++ {
			if _, ok := inTest[p]; !ok {
				train = append(train, p)
			}
		}

		folds = append(folds, Fold{Train: train, Test: test})
		offset += size
	}
	return folds, nil
}
