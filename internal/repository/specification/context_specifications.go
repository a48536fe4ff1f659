package specification

import "gorm.io/gorm"

type BySubject struct {
	SubjectId string
}

func (s BySubject) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject_id = ?", s.SubjectId)
}

type ByContextTag struct {
	Tag string
}

func (s ByContextTag) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("context_tag = ?", s.Tag)
}

type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}

// ContextScope selects one subject's documents under one tag, optionally
// narrowed to a single source.
func ContextScope(subjectId, tag, source string) []Specification {
	specs := []Specification{BySubject{SubjectId: subjectId}, ByContextTag{Tag: tag}}
	if source != "" {
		specs = append(specs, BySource{Source: source})
	}
	return specs
}
