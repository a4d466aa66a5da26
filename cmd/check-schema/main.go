package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	commoncfg "gasra-notifier/common/config"
	"gasra-notifier/common/database"

	"github.com/joho/godotenv"
)

// 通知流程读写的表和列
var requiredColumns = []struct {
	table   string
	columns []string
}{
	{"inspection_results", []string{"id", "inspection_id", "item_id", "kondisi"}},
	{"inspections", []string{"id", "head_id", "chassis_id", "storage_id", "inspector_id", "is_notified"}},
	{"inspection_items", []string{"id", "name"}},
	{"problem_reports", []string{"id", "head_id", "chassis_id", "storage_id", "custom_title", "reported_by_id"}},
	{"maintenance_records", []string{"id", "problem_report_id", "inspection_result_id", "repaired_by_id"}},
	{"profiles", []string{"id", "role", "fcm_token", "name"}},
	{"heads", []string{"id", "head_code"}},
	{"chassis", []string{"id", "chassis_code"}},
	{"storages", []string{"id", "storage_code"}},
}

func main() {
	_ = godotenv.Load()

	dbCfg := commoncfg.DatabaseConfig{MaxConns: 2, MaxIdle: 1}
	dbCfg.LoadFromEnv("DATABASE")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &dbCfg)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database")
	fmt.Println()
	fmt.Println("Table               | Column               | Type")
	fmt.Println("--------------------|----------------------|-----------------")

	missing := 0
	for _, t := range requiredColumns {
		types, err := columnTypes(ctx, db, t.table)
		if err != nil {
			log.Fatalf("Failed to query columns of %s: %v", t.table, err)
		}
		for _, col := range t.columns {
			dataType, ok := types[col]
			if !ok {
				missing++
				fmt.Printf("%-19s | %-20s | ❌ MISSING\n", t.table, col)
				continue
			}
			fmt.Printf("%-19s | %-20s | %s\n", t.table, col, dataType)
		}
	}

	fmt.Println()
	if missing > 0 {
		fmt.Printf("❌ %d required column(s) missing\n", missing)
		os.Exit(1)
	}
	fmt.Println("✅ Schema OK")
}

func columnTypes(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		types[name] = dataType
	}
	return types, rows.Err()
}
