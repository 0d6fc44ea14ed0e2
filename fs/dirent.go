package fs

import "path"

type Dirent struct {
	Name   string
	Parent *Dirent
	Inode  *Inode
}

// Path rebuilds the absolute path of d from its parents.
func (d *Dirent) Path() string {
	if d.Parent == nil {
		return "/"
	}

	return path.Join(d.Parent.Path(), d.Name)
}
