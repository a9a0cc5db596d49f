package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling-service/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProviders(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedSpecialists(context.Background(), pool, 30); err != nil {
		log.Fatalf("seed specialists: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

var clinicalSpecialties = []string{
	"Clinical Psychology",
	"Psychiatry",
	"Family Therapy",
	"Addiction Medicine",
	"Child and Adolescent Psychiatry",
	"Neuropsychology",
	"Behavioral Medicine",
	"Geriatric Psychiatry",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := clinicalSpecialties[gofakeit.Number(0, len(clinicalSpecialties)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), gofakeit.Name(), spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("providers seeded")
	return nil
}

func seedSpecialists(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d specialists", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := clinicalSpecialties[gofakeit.Number(0, len(clinicalSpecialties)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO specialists (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), gofakeit.Name(), spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("specialists seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
