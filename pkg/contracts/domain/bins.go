package domain

// BinKey identifies one of the six IAT comfort bins.
type BinKey string

const (
	BinBelowHeating    BinKey = "bin1_IAT<HSP"
	BinDeadband0to25   BinKey = "bin2_0-25%"
	BinDeadband25to50  BinKey = "bin3_25-50%"
	BinDeadband50to75  BinKey = "bin4_50-75%"
	BinDeadband75to100 BinKey = "bin5_75-100%"
	BinAboveCooling    BinKey = "bin6_IAT>CSP"
)

// BinKeys lists the bins in display and column order.
var BinKeys = []BinKey{
	BinBelowHeating,
	BinDeadband0to25,
	BinDeadband25to50,
	BinDeadband50to75,
	BinDeadband75to100,
	BinAboveCooling,
}

// BinColumns returns the bin keys as frame column names.
func BinColumns() []string {
	cols := make([]string, len(BinKeys))
	for i, k := range BinKeys {
		cols[i] = string(k)
	}
	return cols
}

// Category groups bins into wasted, excess and useful cooling.
type Category string

const (
	CategoryWasted Category = "Wasted"
	CategoryExcess Category = "Excess"
	CategoryUseful Category = "Useful"
)

// Categories lists the regrouped categories in stacking order.
var Categories = []Category{CategoryWasted, CategoryExcess, CategoryUseful}

// BinInfo carries the display metadata of a bin.
type BinInfo struct {
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
}

// Bins maps every bin to its label, color and category.
var Bins = map[BinKey]BinInfo{
	BinBelowHeating:    {Label: "Wasted", Color: "#e74c3c", Category: CategoryWasted},
	BinDeadband0to25:   {Label: "Excess", Color: "#f39c12", Category: CategoryExcess},
	BinDeadband25to50:  {Label: "Excess", Color: "#f1c40f", Category: CategoryExcess},
	BinDeadband50to75:  {Label: "Useful", Color: "#2ecc71", Category: CategoryUseful},
	BinDeadband75to100: {Label: "Useful", Color: "#27ae60", Category: CategoryUseful},
	BinAboveCooling:    {Label: "Useful", Color: "#16a085", Category: CategoryUseful},
}

// Theme colors used by rankings and regrouped charts.
const (
	ColorWasteful  = "#e74c3c"
	ColorExcess    = "#f39c12"
	ColorUseful    = "#27ae60"
	ColorDemanding = "#3498db"
)

// CategoryColors maps categories to their chart color.
var CategoryColors = map[Category]string{
	CategoryWasted: ColorWasteful,
	CategoryExcess: ColorExcess,
	CategoryUseful: ColorUseful,
}
