package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
)

// Verifier performs post-migration verification.
type Verifier struct {
	sourceDB *gorm.DB
	targetDB *gorm.DB
}

// NewVerifier creates a new Verifier.
func NewVerifier(sourceDB, targetDB *gorm.DB) *Verifier {
	return &Verifier{
		sourceDB: sourceDB,
		targetDB: targetDB,
	}
}

// Verify performs all verification checks.
func (v *Verifier) Verify() error {
	// Count verification
	if err := v.verifyCounts(); err != nil {
		return fmt.Errorf("count verification failed: %w", err)
	}

	// Sample verification for critical tables
	if err := v.verifySamples(); err != nil {
		return fmt.Errorf("sample verification failed: %w", err)
	}

	return nil
}

// verifyCounts compares record counts between source and target.
func (v *Verifier) verifyCounts() error {
	fmt.Println("\nVerifying record counts...")

	tables := []struct {
		name  string
		model any
	}{
		{"frame_captures", &datastore.FrameCapture{}},
		{"detection_rows", &datastore.DetectionRow{}},
	}

	allMatch := true
	fmt.Printf("%-25s %12s %12s %8s\n", "Table", "Source", "Target", "Match")
	fmt.Println(string(make([]byte, 60)))

	for _, t := range tables {
		var sourceCount, targetCount int64

		if err := v.sourceDB.Model(t.model).Count(&sourceCount).Error; err != nil {
			return fmt.Errorf("failed to count source %s: %w", t.name, err)
		}

		if err := v.targetDB.Model(t.model).Count(&targetCount).Error; err != nil {
			return fmt.Errorf("failed to count target %s: %w", t.name, err)
		}

		match := "✓"
		if sourceCount != targetCount {
			match = "✗"
			allMatch = false
		}

		fmt.Printf("%-25s %12d %12d %8s\n", t.name, sourceCount, targetCount, match)
	}

	if !allMatch {
		return fmt.Errorf("record counts do not match")
	}

	fmt.Println("\nAll counts match!")
	return nil
}

// verifySamples verifies random samples from both tables.
func (v *Verifier) verifySamples() error {
	fmt.Println("\nVerifying sample records...")

	// Sample FrameCaptures (parent table)
	if err := v.sampleCaptures(5); err != nil {
		return fmt.Errorf("capture sampling failed: %w", err)
	}

	// Sample DetectionRows
	if err := v.sampleDetections(5); err != nil {
		return fmt.Errorf("detection sampling failed: %w", err)
	}

	fmt.Println("Sample verification passed!")
	return nil
}

// sampleCaptures verifies random FrameCapture records.
func (v *Verifier) sampleCaptures(count int) error {
	// Get random records from source
	var sourceCaptures []datastore.FrameCapture
	if err := v.sourceDB.Order("RANDOM()").Limit(count).Find(&sourceCaptures).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}

	if len(sourceCaptures) == 0 {
		fmt.Println("  FrameCaptures: no records to sample")
		return nil
	}

	// Verify each in target using index to avoid copying the struct
	for i := range sourceCaptures {
		src := &sourceCaptures[i]
		var target datastore.FrameCapture
		if err := v.targetDB.First(&target, src.ID).Error; err != nil {
			return fmt.Errorf("capture ID %d not found in target: %w", src.ID, err)
		}

		// Verify critical fields. Timestamps compare at second precision,
		// MySQL DATETIME rounds what SQLite stored.
		if src.ReceivedAt.Unix() != target.ReceivedAt.Unix() {
			return fmt.Errorf("capture ID %d: ReceivedAt mismatch (%s vs %s)",
				src.ID, src.ReceivedAt, target.ReceivedAt)
		}
		if src.ModelPath != target.ModelPath {
			return fmt.Errorf("capture ID %d: ModelPath mismatch (%s vs %s)",
				src.ID, src.ModelPath, target.ModelPath)
		}
		if src.ClientIP != target.ClientIP {
			return fmt.Errorf("capture ID %d: ClientIP mismatch (%s vs %s)",
				src.ID, src.ClientIP, target.ClientIP)
		}
		if src.Width != target.Width || src.Height != target.Height {
			return fmt.Errorf("capture ID %d: dimensions mismatch (%dx%d vs %dx%d)",
				src.ID, src.Width, src.Height, target.Width, target.Height)
		}
	}

	fmt.Printf("  FrameCaptures: %d samples verified\n", len(sourceCaptures))
	return nil
}

// sampleDetections verifies random DetectionRow records.
func (v *Verifier) sampleDetections(count int) error {
	// Get random records from source
	var sourceDetections []datastore.DetectionRow
	if err := v.sourceDB.Order("RANDOM()").Limit(count).Find(&sourceDetections).Error; err != nil {
		return fmt.Errorf("failed to fetch source samples: %w", err)
	}

	if len(sourceDetections) == 0 {
		fmt.Println("  DetectionRows: no records to sample")
		return nil
	}

	// Verify each in target
	for _, src := range sourceDetections {
		var target datastore.DetectionRow
		if err := v.targetDB.First(&target, src.ID).Error; err != nil {
			return fmt.Errorf("detection ID %d not found in target: %w", src.ID, err)
		}

		// Verify critical fields
		if src.CaptureID != target.CaptureID {
			return fmt.Errorf("detection ID %d: CaptureID mismatch (%d vs %d)",
				src.ID, src.CaptureID, target.CaptureID)
		}
		if src.ClassID != target.ClassID {
			return fmt.Errorf("detection ID %d: ClassID mismatch (%d vs %d)",
				src.ID, src.ClassID, target.ClassID)
		}
		if src.Confidence != target.Confidence {
			return fmt.Errorf("detection ID %d: Confidence mismatch (%f vs %f)",
				src.ID, src.Confidence, target.Confidence)
		}
		if src.X1 != target.X1 || src.Y1 != target.Y1 || src.X2 != target.X2 || src.Y2 != target.Y2 {
			return fmt.Errorf("detection ID %d: box mismatch", src.ID)
		}
	}

	fmt.Printf("  DetectionRows: %d samples verified\n", len(sourceDetections))
	return nil
}
