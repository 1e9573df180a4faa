package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"admin-core/internal/schemas"
)

func treeNode(name string, sortOrder int, children ...*schemas.DepartmentTreeDTO) *schemas.DepartmentTreeDTO {
	return &schemas.DepartmentTreeDTO{
		Department: schemas.Department{Name: name, SortOrder: sortOrder},
		Children:   children,
	}
}

func TestSortTree(t *testing.T) {
	roots := []*schemas.DepartmentTreeDTO{
		treeNode("Sales", 2),
		treeNode("Engineering", 1,
			treeNode("Platform", 2),
			treeNode("Backend", 1),
			treeNode("Apps", 1),
		),
		treeNode("Admin", 2),
	}

	sortTree(roots)

	assert.Equal(t, "Engineering", roots[0].Name)
	// Equal sort orders fall back to the name.
	assert.Equal(t, "Admin", roots[1].Name)
	assert.Equal(t, "Sales", roots[2].Name)

	children := roots[0].Children
	assert.Equal(t, "Apps", children[0].Name)
	assert.Equal(t, "Backend", children[1].Name)
	assert.Equal(t, "Platform", children[2].Name)
}
