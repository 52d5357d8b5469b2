// Package access содержит чистый предикат прав доступа к проекту.
// Один и тот же предикат используется всеми операциями над версиями,
// проектами и комментариями — проверки не дублируются по эндпоинтам.
package access

import "github.com/opencodehub/opencodehub/internal/models"

// Level — уровень доступа пользователя к проекту.
type Level int

const (
	// Denied — доступа нет (приватный проект чужого пользователя).
	Denied Level = iota
	// PublicViewer — просмотр публичного проекта.
	PublicViewer
	// Collaborator — пользователь, которому проект расшарен явно.
	Collaborator
	// Owner — владелец проекта.
	Owner
)

// Resolve вычисляет уровень доступа пользователя userID к проекту.
// shared — расшарен ли проект этому пользователю явно.
func Resolve(userID int64, project *models.Project, shared bool) Level {
	switch {
	case project.OwnerID == userID:
		return Owner
	case shared:
		return Collaborator
	case project.IsPublic:
		return PublicViewer
	default:
		return Denied
	}
}

// CanView — разрешён ли просмотр и скачивание (владелец, соавтор или публичный проект).
func (l Level) CanView() bool { return l >= PublicViewer }

// CanUpload — разрешена ли загрузка версий (владелец или соавтор).
func (l Level) CanUpload() bool { return l >= Collaborator }

// IsOwner — является ли пользователь владельцем проекта.
func (l Level) IsOwner() bool { return l == Owner }
