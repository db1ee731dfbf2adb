package domain

import (
	"github.com/mosaicry/mosaicry-backend/internal/domain/content"
	"github.com/mosaicry/mosaicry-backend/internal/domain/generation"
)

const (
	GenerationStatusNotStarted = generation.StatusNotStarted
	GenerationStatusInProgress = generation.StatusInProgress
	GenerationStatusCompleted  = generation.StatusCompleted
	GenerationStatusFailed     = generation.StatusFailed

	GenerationOutputGenerated = generation.OutputGenerated

	AtomStatusPublished = content.AtomStatusPublished
	AtomStatusHidden    = content.AtomStatusHidden
)

type GenerationRecord = generation.Record
type GenerationItem = generation.Item
type GenerationResult = generation.Result

type Atom = content.Atom
type AtomFieldConfig = content.AtomFieldConfig
type AtomTag = content.AtomTag
type Category = content.Category
type Group = content.Group
type Tag = content.Tag
