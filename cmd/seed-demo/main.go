package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/database"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/service"
)

const (
	studentCount     = 20
	questionsPerTier = 8
	seedPassword     = "proctor123"
)

// seed-demo creates a course with a batch, enrolled students, a question bank
// over all three tiers, one randomized exam and one curated exam.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)

	// Registration and hashing do not touch Redis.
	authService := service.NewAuthService(cfg, nil, profileRepo)
	courseService := service.NewCourseService(courseRepo, profileRepo)
	questionService := service.NewQuestionService(questionRepo, courseRepo)
	examService := service.NewExamService(examRepo, questionRepo, courseRepo,
		repository.NewResultRepository(pool), repository.NewIntegrityEventRepository(pool))

	// ─── Course and Batch ──────────────────────────────────────────────
	course, err := courseService.Create(ctx, &model.CreateCourseRequest{
		Name:        fmt.Sprintf("General Aptitude %s", time.Now().Format("2006-01-02 15:04")),
		Description: "Demo course created by seed-demo",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create course")
	}
	batch, err := courseService.CreateBatch(ctx, &model.CreateBatchRequest{CourseID: course.ID, Name: "Morning"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create batch")
	}
	fmt.Printf("Created course %q (%s) with batch %q\n", course.Name, course.ID, batch.Name)

	// ─── Students ──────────────────────────────────────────────────────
	enrolled := 0
	for i := 1; i <= studentCount; i++ {
		email := fmt.Sprintf("student%02d@proctor.local", i)
		p, err := authService.Register(ctx, &model.RegisterStudentRequest{
			Email:     email,
			Password:  seedPassword,
			FirstName: "Student",
			Surname:   fmt.Sprintf("%02d", i),
		})
		if errors.Is(err, service.ErrEmailTaken) {
			p, err = profileRepo.GetByEmail(ctx, email)
		}
		if err != nil {
			fmt.Printf("Error creating %s: %v\n", email, err)
			continue
		}

		_, err = courseService.Enroll(ctx, &model.CreateEnrollmentRequest{
			StudentID: p.ID,
			CourseID:  course.ID,
			BatchID:   &batch.ID,
		})
		if err != nil {
			fmt.Printf("Error enrolling %s: %v\n", email, err)
			continue
		}
		enrolled++
	}
	fmt.Printf("Enrolled %d/%d students (password %q)\n", enrolled, studentCount, seedPassword)

	// ─── Question Bank ─────────────────────────────────────────────────
	var curated []uuid.UUID
	for _, tier := range model.Difficulties {
		for i := 1; i <= questionsPerTier; i++ {
			a, b := i*3, i+4
			q, err := questionService.Create(ctx, &model.CreateQuestionRequest{
				CourseID:   course.ID,
				Difficulty: tier,
				Text:       fmt.Sprintf("[%s #%d] What is %d + %d?", tier, i, a, b),
				Options: model.Options{
					A: fmt.Sprint(a + b),
					B: fmt.Sprint(a + b + 1),
					C: fmt.Sprint(a + b - 1),
					D: fmt.Sprint(a * b),
				},
				CorrectOption: model.OptionA,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create question")
			}
			if i <= 2 {
				curated = append(curated, q.ID)
			}
		}
	}
	fmt.Printf("Created %d questions\n", questionsPerTier*len(model.Difficulties))

	// ─── Exams ─────────────────────────────────────────────────────────
	randomized, err := examService.Create(ctx, &model.CreateExamRequest{
		Title:           "Aptitude Mock (randomized)",
		CourseIDs:       []uuid.UUID{course.ID},
		BatchID:         &batch.ID,
		DurationMinutes: 30,
		Randomized:      true,
		Shuffled:        true,
		EasyCount:       4,
		ModerateCount:   3,
		HardCount:       2,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create randomized exam")
	}

	fixed, err := examService.Create(ctx, &model.CreateExamRequest{
		Title:           "Aptitude Quiz (curated)",
		CourseIDs:       []uuid.UUID{course.ID},
		DurationMinutes: 10,
		QuestionIDs:     curated,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create curated exam")
	}

	fmt.Printf("\nSeed completed! Exams: %s, %s\n", randomized.ID, fixed.ID)
}
