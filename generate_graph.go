//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/bot"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func main() {
	expenses := []models.Expense{
		{Amount: decimal.NewFromFloat(1200.00), Category: &models.Category{Name: "Housing"}},
		{Amount: decimal.NewFromFloat(412.30), Category: &models.Category{Name: "Groceries"}},
		{Amount: decimal.NewFromFloat(188.45), Category: &models.Category{Name: "Dining Out"}},
		{Amount: decimal.NewFromFloat(95.00), Category: &models.Category{Name: "Transport"}},
		{Amount: decimal.NewFromFloat(64.99), Category: &models.Category{Name: "Subscriptions"}},
		{Amount: decimal.NewFromFloat(42.00), Category: &models.Category{Name: "Entertainment"}},
	}

	chartData, err := bot.GenerateExpenseChart(expenses, "Spending by Category - August 2026")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example category breakdown chart")
}
