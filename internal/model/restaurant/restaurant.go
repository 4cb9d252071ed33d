package restaurant

import "time"

// Restaurant is the identity block injected into prompts.
type Restaurant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	OpeningHours string `json:"openingHours"`
}

// TableStatus tracks whether a table can be offered to a guest.
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Table is a physical table in the dining room.
type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Seats  int         `json:"seats"`
	Status TableStatus `json:"status"`
}

// MenuItem is a dish with its listed price in VND.
type MenuItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     int       `json:"price"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Seed provides the default demo restaurant used when no upstream data
// source is wired.
func Seed() (Restaurant, []Table, []MenuItem) {
	info := Restaurant{
		ID:           "viet-bistro",
		Name:         "Việt Bistro",
		Address:      "25 Nguyễn Huệ, Quận 1, TP. Hồ Chí Minh",
		Phone:        "028 3822 9911",
		OpeningHours: "10:00 - 22:00 hằng ngày",
	}

	tables := []Table{
		{ID: "t1", Name: "Bàn 1", Seats: 2, Status: TableAvailable},
		{ID: "t2", Name: "Bàn 2", Seats: 2, Status: TableOccupied},
		{ID: "t3", Name: "Bàn 3", Seats: 4, Status: TableAvailable},
		{ID: "t4", Name: "Bàn 4", Seats: 4, Status: TableReserved},
		{ID: "t5", Name: "Bàn 5", Seats: 6, Status: TableAvailable},
		{ID: "t6", Name: "Bàn VIP", Seats: 10, Status: TableAvailable},
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []struct {
		name     string
		category string
		price    int
	}{
		{"Phở bò tái", "Món chính", 65000},
		{"Phở gà", "Món chính", 60000},
		{"Bún chả Hà Nội", "Món chính", 70000},
		{"Bún bò Huế", "Món chính", 68000},
		{"Cơm tấm sườn bì chả", "Món chính", 62000},
		{"Gỏi cuốn tôm thịt", "Khai vị", 45000},
		{"Chả giò", "Khai vị", 48000},
		{"Bánh xèo", "Khai vị", 55000},
		{"Bánh mì thịt nướng", "Ăn nhẹ", 35000},
		{"Chè ba màu", "Tráng miệng", 30000},
		{"Cà phê sữa đá", "Đồ uống", 29000},
		{"Trà đá chanh", "Đồ uống", 20000},
	}

	items := make([]MenuItem, 0, len(names))
	for i, n := range names {
		items = append(items, MenuItem{
			ID:        n.name,
			Name:      n.name,
			Category:  n.category,
			Price:     n.price,
			Active:    true,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	// One retired dish so Active filtering is observable.
	items = append(items, MenuItem{
		ID:        "mi-quang",
		Name:      "Mì Quảng",
		Category:  "Món chính",
		Price:     66000,
		Active:    false,
		CreatedAt: base.Add(30 * 24 * time.Hour),
	})

	return info, tables, items
}
