package main

import "time"

type seedDish struct {
	Name        string
	Description string
	Category    string
	Price       string
	Veg         bool
	Popular     bool
	New         bool
	ChefSpecial bool
}

var menu = []seedDish{
	{Name: "Paneer Tikka", Description: "Chargrilled cottage cheese marinated in spiced yoghurt", Category: "starters", Price: "249", Veg: true, Popular: true},
	{Name: "Hara Bhara Kebab", Description: "Spinach and green pea patties with mint chutney", Category: "starters", Price: "199", Veg: true},
	{Name: "Chicken 65", Description: "Crisp fried chicken tossed with curry leaves and chilli", Category: "starters", Price: "279", Popular: true},
	{Name: "Amritsari Fish", Description: "Carom-spiced batter fried fish with lemon", Category: "starters", Price: "329", New: true},

	{Name: "Paneer Butter Masala", Description: "Cottage cheese in rich creamy tomato gravy", Category: "main-course", Price: "299", Veg: true, Popular: true, ChefSpecial: true},
	{Name: "Dal Makhani", Description: "Slow-cooked black lentils with butter and cream", Category: "main-course", Price: "249", Veg: true, Popular: true},
	{Name: "Butter Chicken", Description: "Tandoori chicken simmered in a velvety tomato and butter sauce", Category: "main-course", Price: "349", Popular: true, ChefSpecial: true},
	{Name: "Hyderabadi Chicken Biryani", Description: "Dum-cooked basmati rice layered with saffron and chicken", Category: "main-course", Price: "379", New: true},
	{Name: "Chana Masala", Description: "Chickpeas in a tangy onion and tomato masala", Category: "main-course", Price: "219", Veg: true},

	{Name: "Butter Naan", Description: "Soft leavened bread with butter", Category: "breads", Price: "49", Veg: true, Popular: true},
	{Name: "Garlic Naan", Description: "Tandoor-baked naan topped with garlic and coriander", Category: "breads", Price: "59", Veg: true},
	{Name: "Lachha Paratha", Description: "Flaky layered whole wheat bread", Category: "breads", Price: "55", Veg: true},
	{Name: "Tandoori Roti", Description: "Whole wheat bread from the clay oven", Category: "breads", Price: "29", Veg: true},

	{Name: "Gulab Jamun", Description: "Milk dumplings soaked in rose and cardamom syrup", Category: "desserts", Price: "99", Veg: true, Popular: true},
	{Name: "Rasmalai", Description: "Cottage cheese discs in saffron milk", Category: "desserts", Price: "129", Veg: true},
	{Name: "Gajar Halwa", Description: "Slow-cooked carrot pudding with nuts", Category: "desserts", Price: "119", Veg: true, New: true},

	{Name: "Mango Lassi", Description: "Chilled yoghurt smoothie with Alphonso mango", Category: "beverages", Price: "119", Veg: true, Popular: true},
	{Name: "Masala Chai", Description: "Spiced milk tea brewed with ginger and cardamom", Category: "beverages", Price: "49", Veg: true},
	{Name: "Fresh Lime Soda", Description: "Sweet or salted lime with soda", Category: "beverages", Price: "79", Veg: true},
}

type seedCoupon struct {
	Code        string
	Description string
	Type        string
	Value       string
	MinOrder    string
	MaxDiscount string
	ValidFor    time.Duration
	Active      bool
}

var coupons = []seedCoupon{
	{Code: "WELCOME20", Description: "20% off your first order, up to 150", Type: "percentage", Value: "20", MinOrder: "300", MaxDiscount: "150", ValidFor: 90 * 24 * time.Hour, Active: true},
	{Code: "FLAT100", Description: "Flat 100 off orders above 799", Type: "fixed", Value: "100", MinOrder: "799", ValidFor: 30 * 24 * time.Hour, Active: true},
	{Code: "FEAST15", Description: "15% off weekend feasts, up to 250", Type: "percentage", Value: "15", MinOrder: "1000", MaxDiscount: "250", ValidFor: 60 * 24 * time.Hour, Active: true},
	{Code: "MONSOON50", Description: "Seasonal offer, no longer running", Type: "fixed", Value: "50", ValidFor: 7 * 24 * time.Hour, Active: false},
}
