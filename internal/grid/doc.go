// Package grid builds the square metric analysis grid centred on an
// epicentre and samples the site-condition (VS30) raster onto it.
//
// The grid lives in World Mercator (EPSG:3395) so that the cell size is a
// fixed number of metres. Cell centres follow the pixel-centre convention:
// cell (r, c) sits at (xmin + (c+0.5)·res, ymax − (r+0.5)·res).
//
// Openers that implement Warper (the GDAL adapter) resample the site raster
// themselves. For plain SiteOpeners, site values are resampled bilinearly
// from only the source window that covers the target grid, so large
// national VS30 mosaics are never read whole. Both paths drop no-data and
// out-of-extent taps and renormalise the remaining bilinear weights.
package grid
