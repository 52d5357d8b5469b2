package models

import "time"

// ProjectVersion представляет одну неизменяемую версию файла проекта.
// Поля object_key, file_size, file_type, created_by, created_at
// заполняются один раз при создании и больше не меняются.
type ProjectVersion struct {
	ID                int64     `db:"id"`
	ProjectID         int64     `db:"project_id"`
	VersionNumber     string    `db:"version_number"`
	Description       string    `db:"description"`
	CreatedAt         time.Time `db:"created_at"`
	CreatedByID       int64     `db:"created_by"`
	CreatedByUsername string    `db:"created_by_username"` // Заполняется JOIN-ом с users
	ObjectKey         string    `db:"object_key"`
	FileSize          int64     `db:"file_size"`
	FileType          string    `db:"file_type"`
	IsLatest          bool      `db:"is_latest"`
}

// VersionUpdate описывает изменяемые через PATCH поля версии.
// Все остальные поля версии неизменяемы.
type VersionUpdate struct {
	Description *string `json:"description"`
	IsLatest    *bool   `json:"is_latest"`
}

// VersionResponse — представление версии в API.
type VersionResponse struct {
	ID             int64      `json:"id"`
	Project        int64      `json:"project"`
	VersionNumber  string     `json:"version_number"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedBy      PublicUser `json:"created_by"`
	VersionFile    string     `json:"version_file"`
	VersionFileURL *string    `json:"version_file_url"`
	FileSize       int64      `json:"file_size"`
	FileType       string     `json:"file_type"`
	IsLatest       bool       `json:"is_latest"`
}

// NewVersionResponse собирает представление версии для API.
// fileURL — разрешаемая ссылка на файл в хранилище; пустая строка кодируется как null.
func NewVersionResponse(v *ProjectVersion, fileURL string) VersionResponse {
	var url *string
	if fileURL != "" {
		url = &fileURL
	}
	return VersionResponse{
		ID:             v.ID,
		Project:        v.ProjectID,
		VersionNumber:  v.VersionNumber,
		Description:    v.Description,
		CreatedAt:      v.CreatedAt.UTC(),
		CreatedBy:      PublicUser{ID: v.CreatedByID, Username: v.CreatedByUsername},
		VersionFile:    v.ObjectKey,
		VersionFileURL: url,
		FileSize:       v.FileSize,
		FileType:       v.FileType,
		IsLatest:       v.IsLatest,
	}
}
