package model

type Unit string

const (
	UnitPcs   Unit = "pcs"
	UnitBox   Unit = "box"
	UnitKg    Unit = "kg"
	UnitG     Unit = "g"
	UnitLitre Unit = "litre"
	UnitPack  Unit = "pack"
)

// unitが許可された値かどうか
func (u Unit) Valid() bool {
	switch u {
	case UnitPcs, UnitBox, UnitKg, UnitG, UnitLitre, UnitPack:
		return true
	}
	return false
}

type Category string

const (
	CategoryTransformer Category = "Transformer"
	CategoryLine        Category = "Line"
)

// categoryが許可された値かどうか
func (c Category) Valid() bool {
	return c == CategoryTransformer || c == CategoryLine
}

// 在庫アイテム。totalValueはquantity×priceの導出値で、書き込みのたびに再計算する。
type Item struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Unit         Unit      `json:"unit" gorm:"type:varchar(20);not null"`
	Quantity     float64   `json:"quantity" gorm:"not null"`
	Price        float64   `json:"price" gorm:"not null"`
	Dealer       string    `json:"dealer" gorm:"type:varchar(255);not null"`
	MinThreshold float64   `json:"minThreshold" gorm:"not null"`
	Category     Category  `json:"category" gorm:"type:varchar(50);not null;index"`
	TotalValue   float64   `json:"totalValue" gorm:"not null"`
	Timestamp    Timestamp `json:"timestamps" gorm:"embedded"`
}

// 在庫不足かどうか。quantity == minThreshold は不足ではない。
func (i Item) IsLowStock() bool {
	return i.Quantity < i.MinThreshold
}
