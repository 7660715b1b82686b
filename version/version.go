/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package version carries build/release metadata (package path, license,
// build hash, author) for use in a CLI's --version output.
package version

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// License identifies the license a package is distributed under.
type License uint8

const (
	License_MIT License = iota
	License_Apache_v2
	License_GNU_GPL_v3
	License_GNU_Lesser_GPL_v3
	License_GNU_Affero_GPL_v3
	License_Mozilla_PL_v2
	License_Creative_Common_Zero_v1
	License_Creative_Common_Attribution_v4_int
	License_Creative_Common_Attribution_Share_Alike_v4_int
	License_SIL_Open_Font_1_1
	License_Unlicense
)

// Name returns the short human-readable name of the license.
func (l License) Name() string {
	switch l {
	case License_MIT:
		return "MIT License"
	case License_Apache_v2:
		return "Apache License 2.0"
	case License_GNU_GPL_v3:
		return "GNU GENERAL PUBLIC LICENSE v3"
	case License_GNU_Lesser_GPL_v3:
		return "GNU LESSER GENERAL PUBLIC LICENSE v3"
	case License_GNU_Affero_GPL_v3:
		return "GNU AFFERO GENERAL PUBLIC LICENSE v3"
	case License_Mozilla_PL_v2:
		return "Mozilla Public License 2.0"
	case License_Creative_Common_Zero_v1:
		return "Creative Commons CC0 1.0"
	case License_Creative_Common_Attribution_v4_int:
		return "Creative Commons Attribution 4.0 International"
	case License_Creative_Common_Attribution_Share_Alike_v4_int:
		return "Creative Commons Attribution-ShareAlike 4.0 International"
	case License_SIL_Open_Font_1_1:
		return "SIL Open Font License 1.1"
	case License_Unlicense:
		return "The Unlicense"
	default:
		return ""
	}
}

// Version exposes the build/release metadata of a package.
type Version interface {
	GetPackage() string
	GetDescription() string
	GetTime() time.Time
	GetDate() string
	GetBuild() string
	GetRelease() string
	GetAuthor() string
	GetPrefix() string
	GetAppId() string
	GetLicenseName() string
	GetRootPackagePath() string
	GetHeader() string
	GetInfo() string
}

type vers struct {
	lic     License
	pkg     string
	desc    string
	date    time.Time
	build   string
	release string
	author  string
	prefix  string
	root    string
}

// NewVersion builds a Version from build-time metadata. date is parsed as
// RFC3339 and falls back to time.Now on parse failure. obj is any value
// living in the package whose version is being described; its reflected
// package path (trimmed by numSubPackage path segments) becomes the root
// package path reported by GetRootPackagePath.
func NewVersion(lic License, pkg, desc, date, build, release, author, prefix string, obj interface{}, numSubPackage int) Version {
	t, e := time.Parse(time.RFC3339, date)
	if e != nil {
		t = time.Now()
	}

	root := reflect.TypeOf(obj).PkgPath()
	if numSubPackage > 0 {
		parts := strings.Split(root, "/")
		if numSubPackage < len(parts) {
			root = strings.Join(parts[:len(parts)-numSubPackage], "/")
		}
	}

	if pkg == "" || pkg == "noname" {
		parts := strings.Split(root, "/")
		pkg = parts[len(parts)-1]
	}

	return &vers{
		lic:     lic,
		pkg:     pkg,
		desc:    desc,
		date:    t,
		build:   build,
		release: release,
		author:  author,
		prefix:  prefix,
		root:    root,
	}
}

func (v *vers) GetPackage() string     { return v.pkg }
func (v *vers) GetDescription() string { return v.desc }
func (v *vers) GetTime() time.Time     { return v.date }
func (v *vers) GetDate() string        { return v.date.Format(time.RFC1123) }
func (v *vers) GetBuild() string       { return v.build }
func (v *vers) GetRelease() string     { return v.release }
func (v *vers) GetAuthor() string      { return v.author }
func (v *vers) GetPrefix() string      { return v.prefix }
func (v *vers) GetLicenseName() string { return v.lic.Name() }
func (v *vers) GetRootPackagePath() string {
	return v.root
}

func (v *vers) GetAppId() string {
	return fmt.Sprintf("%s/%s", v.prefix, v.pkg)
}

func (v *vers) GetHeader() string {
	return fmt.Sprintf("%s %s (%s) - %s", v.pkg, v.release, v.build, v.desc)
}

func (v *vers) GetInfo() string {
	return fmt.Sprintf(
		"%s\n\nAuthor: %s\nLicense: %s\nBuilt: %s\nRoot package: %s\n",
		v.GetHeader(), v.author, v.lic.Name(), v.GetDate(), v.root,
	)
}
